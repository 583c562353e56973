package chatlog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// PostgresStore persists conversation turns and summaries in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendTurns(ctx context.Context, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, t := range turns {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_turns (id, user_id, sender, message, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.UserID, string(t.Sender), t.Message, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) TurnsSince(ctx context.Context, userID string, since time.Time) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, sender, message, created_at
		 FROM conversation_turns
		 WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC, seq ASC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var items []Turn
	for rows.Next() {
		var t Turn
		var sender string
		if err := rows.Scan(&t.ID, &t.UserID, &sender, &t.Message, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Sender = Sender(sender)
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) HasAnyTurn(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversation_turns WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check turn existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Summary(ctx context.Context, userID string) (*UserSummary, error) {
	var sum UserSummary
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, summary, updated_at FROM user_summaries WHERE user_id = $1`,
		userID,
	).Scan(&sum.UserID, &sum.Summary, &sum.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	return &sum, nil
}

func (s *PostgresStore) UpsertSummary(ctx context.Context, userID, summary string, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_summaries (user_id, summary, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET summary = EXCLUDED.summary, updated_at = EXCLUDED.updated_at`,
		userID, summary, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
