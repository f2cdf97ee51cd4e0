package roadmap

import (
	"encoding/json"
	"fmt"
)

// RawRoadmap は生成AIが返した未検証のロードマップです
// Transform を通してのみ Roadmap に変換されます
type RawRoadmap struct {
	data map[string]any
}

// NewRaw はデコード済みのオブジェクトからRawRoadmapを作成します
func NewRaw(data map[string]any) RawRoadmap {
	if data == nil {
		data = map[string]any{}
	}
	return RawRoadmap{data: data}
}

// ParseRaw はJSONオブジェクトをRawRoadmapとして読み込みます
func ParseRaw(b []byte) (RawRoadmap, error) {
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return RawRoadmap{}, fmt.Errorf("roadmap JSONの解析に失敗しました: %w", err)
	}
	return NewRaw(data), nil
}

// IsEmpty はセクションを1つも含まないかどうかを返します
func (r RawRoadmap) IsEmpty() bool {
	return len(asList(r.data["sections"])) == 0
}

// MarshalJSON は元のオブジェクトをそのまま出力します
func (r RawRoadmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewRaw(r.data).data)
}

// Raw は正規化済みロードマップを未検証形式に戻します
func (r Roadmap) Raw() (RawRoadmap, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return RawRoadmap{}, fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	return ParseRaw(b)
}
