// Package envvar は環境変数サンプルファイルを解析します
package envvar

import (
	"regexp"
	"strings"
)

// NoDescription は説明コメントがない変数の説明です
const NoDescription = "No description provided"

// Category は環境変数の分類です
type Category string

const (
	CategoryDatabase Category = "database"
	CategoryAPIKey   Category = "api_key"
	CategoryServer   Category = "server"
	CategoryGeneral  Category = "general"
)

// Variable は1つの環境変数の記述です
type Variable struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Example     string   `json:"example"`
	Category    Category `json:"category"`
}

var namePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// 分類キーワードはこの順で判定します
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryDatabase, []string{"DATABASE", "DB_", "_DB", "POSTGRES", "MYSQL", "MONGO", "REDIS", "SQLITE"}},
	{CategoryAPIKey, []string{"API_KEY", "SECRET", "TOKEN", "KEY", "PASSWORD", "CREDENTIAL", "AUTH"}},
	{CategoryServer, []string{"PORT", "HOST", "URL", "DOMAIN", "ENV", "NODE_ENV"}},
}

// Categorize は変数名から分類を決定します
func Categorize(name string) Category {
	upper := strings.ToUpper(name)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(upper, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}

// IsValidName は変数名が大文字スネークケースかどうかを返します
func IsValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Parse は環境変数サンプルファイルの内容を解析します
// 直前のコメント行を説明とし、空行でコメントはリセットされます
func Parse(content string) []Variable {
	vars := []Variable{}
	comment := ""

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))

		switch {
		case line == "":
			comment = ""
		case strings.HasPrefix(line, "#"):
			text := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if text == "" {
				continue
			}
			if comment == "" {
				comment = text
			} else {
				comment += " " + text
			}
		default:
			name, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
			name = strings.TrimSpace(name)
			if !ok || !IsValidName(name) {
				continue
			}
			value = unquote(strings.TrimSpace(value))

			description := comment
			if description == "" {
				description = NoDescription
			}
			vars = append(vars, Variable{
				Name:        name,
				Description: description,
				Required:    strings.TrimSpace(value) == "",
				Example:     value,
				Category:    Categorize(name),
			})
			comment = ""
		}
	}

	return vars
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
