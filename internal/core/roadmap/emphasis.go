package roadmap

import "regexp"

var (
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
	codePattern = regexp.MustCompile("`(.+?)`")
)

// ExtractEmphasis は **太字** と `コード` で囲まれた部分を抽出します
// 太字をすべて出現順に並べ、その後にコードを出現順に並べます
func ExtractEmphasis(text string) []string {
	out := []string{}
	for _, m := range boldPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range codePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
