package synth

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject は応答にJSONオブジェクトが含まれない場合のエラー
var ErrNoJSONObject = errors.New("response does not contain a JSON object")

// ExtractJSON は応答テキストからJSONオブジェクト部分を取り出す
// ```json フェンスや前後の説明文を取り除く
func ExtractJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, ErrNoJSONObject
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, ErrNoJSONObject
	}
	return []byte(candidate), nil
}
