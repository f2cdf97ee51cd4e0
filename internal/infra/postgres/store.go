package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/dev-onboard/internal/core/apperr"
	"github.com/jinford/dev-onboard/internal/core/store"
	"github.com/jinford/dev-onboard/internal/platform/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
`

// Store はJSONBカラムに保存するDocumentStoreです
type Store struct {
	pool *pgxpool.Pool
	tx   *database.TransactionProvider
}

// NewStore は新しいStoreを作成します
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		tx:   database.NewTransactionProvider(pool),
	}
}

// Migrate はテーブルを作成します
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

// Get はドキュメントを取得します
func (s *Store) Get(ctx context.Context, collection, id string) (mo.Option[[]byte], error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return mo.None[[]byte](), nil
	}
	if err != nil {
		return mo.None[[]byte](), fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return mo.Some(data), nil
}

// Set はドキュメントを作成または置換します
func (s *Store) Set(ctx context.Context, collection, id string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update はJSONBの連結演算子でトップレベルのフィールドをマージします
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := store.MergeFields(nil, fields)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(patch))
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, "postgres.Update", "document "+collection+"/"+id+" not found")
	}
	return nil
}

// BatchDelete は複数のドキュメントを1トランザクションで削除します
func (s *Store) BatchDelete(ctx context.Context, refs []store.Ref) error {
	_, err := database.Transact(ctx, s.tx, func(tx pgx.Tx) (int64, error) {
		var deleted int64
		for _, ref := range refs {
			tag, err := tx.Exec(ctx,
				`DELETE FROM documents WHERE collection = $1 AND id = $2`, ref.Collection, ref.ID)
			if err != nil {
				return 0, fmt.Errorf("failed to delete document %s/%s: %w", ref.Collection, ref.ID, err)
			}
			deleted += tag.RowsAffected()
		}
		return deleted, nil
	})
	return err
}

var _ store.DocumentStore = (*Store)(nil)
