// Package repourl はGitHubリポジトリURLの検証と分解を提供します
package repourl

import (
	"fmt"
	"regexp"
	"strings"

	giturls "github.com/whilp/git-urls"

	"github.com/jinford/dev-onboard/internal/core/apperr"
)

// ExpectedFormat はエラーメッセージで提示するURL形式です
const ExpectedFormat = "https://github.com/{owner}/{repo}"

var strictPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)$`)

// Repository はURLから取り出したオーナーとリポジトリ名です
type Repository struct {
	Owner string
	Name  string
}

// ID は永続化キーとして使う "owner-repo" 形式の識別子を返します
func (r Repository) ID() string {
	return r.Owner + "-" + r.Name
}

// URL は正規形式のURLを返します
func (r Repository) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}

// CloneURL はgit clone用のURLを返します
func (r Repository) CloneURL() string {
	return r.URL() + ".git"
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Parse は https://github.com/{owner}/{repo} に完全一致するURLのみ受け付けます
func Parse(raw string) (Repository, error) {
	m := strictPattern.FindStringSubmatch(raw)
	if m == nil {
		return Repository{}, apperr.New(apperr.ErrInvalidInput, "repourl.Parse",
			fmt.Sprintf("invalid GitHub repository URL %q: expected format %s", raw, ExpectedFormat))
	}
	return Repository{Owner: m[1], Name: m[2]}, nil
}

// Canonicalize はSSH形式や .git 付きのURLを正規形式に書き換えます
// 書き換え後の検証は Parse が行います
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	u, err := giturls.Parse(trimmed)
	if err != nil || !strings.EqualFold(u.Hostname(), "github.com") {
		return trimmed
	}

	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if strings.Count(path, "/") != 1 {
		return trimmed
	}

	return "https://github.com/" + path
}
