// Package git はリポジトリを浅くメモリ上にクローンしてファイルツリーと内容を提供します
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/jinford/dev-onboard/internal/core/source"
)

// ErrBranchNotFound はクローン対象のブランチが存在しない場合のエラー
var ErrBranchNotFound = errors.New("branch not found")

// Client はメモリ上へのクローンを行う
type Client struct {
	depth int
}

// NewClient は新しい Client を作成する。depth が0の場合は全履歴を取得する
func NewClient(depth int) *Client {
	return &Client{depth: depth}
}

// Snapshot はクローンしたブランチ先端のツリーです
type Snapshot struct {
	repo   *git.Repository
	tree   *object.Tree
	Branch string
	Commit string
}

// Clone は指定ブランチをメモリ上にクローンする
// token が空でなければHTTPS Basic認証に使う
func (c *Client) Clone(ctx context.Context, url, branch, token string) (*Snapshot, error) {
	opts := &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         c.depth,
		Tags:          git.NoTags,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}

	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		if isMissingBranch(err) {
			return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
		}
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return &Snapshot{repo: repo, tree: tree, Branch: branch, Commit: commit.Hash.String()}, nil
}

// Items はツリーをフラットな一覧で返す
func (s *Snapshot) Items() ([]source.TreeItem, error) {
	walker := object.NewTreeWalker(s.tree, true, nil)
	defer walker.Close()

	var items []source.TreeItem
	for {
		name, entry, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree: %w", err)
		}

		item := source.TreeItem{Path: name, SHA: entry.Hash.String()}
		switch entry.Mode {
		case filemode.Dir:
			item.Type = source.ItemTypeTree
		case filemode.Submodule:
			continue
		default:
			blob, err := s.repo.BlobObject(entry.Hash)
			if err != nil {
				return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
			}
			item.Type = source.ItemTypeBlob
			item.Size = blob.Size
		}
		items = append(items, item)
	}
	return items, nil
}

// ReadFile はファイル内容を返す
func (s *Snapshot) ReadFile(path string) (string, error) {
	f, err := s.tree.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to find %s: %w", path, err)
	}
	content, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return content, nil
}

func isMissingBranch(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var refSpecErr git.NoMatchingRefSpecError
	if errors.As(err, &refSpecErr) {
		return true
	}
	return strings.Contains(err.Error(), "couldn't find remote ref")
}

func isAccessDenied(err error) bool {
	return errors.Is(err, transport.ErrRepositoryNotFound) ||
		errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed)
}
