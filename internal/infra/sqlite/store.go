// Package sqlite はSQLiteを使ったDocumentStore実装を提供します
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// Store はSQLiteファイルに保存するDocumentStoreです
type Store struct {
	db *sql.DB
}

// Open はSQLiteデータベースを開き、スキーマを初期化します
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLiteは単一ライターのため接続を1本に絞る
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はデータベースを閉じます
func (s *Store) Close() error {
	return s.db.Close()
}

// Get はドキュメントを取得します
func (s *Store) Get(ctx context.Context, collection, id string) (mo.Option[[]byte], error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[[]byte](), nil
	}
	if err != nil {
		return mo.None[[]byte](), fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return mo.Some([]byte(data)), nil
}

// Set はドキュメントを作成または置換します
func (s *Store) Set(ctx context.Context, collection, id string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update はトップレベルのフィールドをマージします
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.ErrNotFound, "sqlite.Update", "document "+collection+"/"+id+" not found")
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s/%s: %w", collection, id, err)
	}

	merged, err := store.MergeFields([]byte(current), fields)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(merged), time.Now().UTC().Format(time.RFC3339Nano), collection, id); err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BatchDelete は複数のドキュメントを1トランザクションで削除します
func (s *Store) BatchDelete(ctx context.Context, refs []store.Ref) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id = ?`, ref.Collection, ref.ID); err != nil {
			return fmt.Errorf("failed to delete document %s/%s: %w", ref.Collection, ref.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ store.DocumentStore = (*Store)(nil)
