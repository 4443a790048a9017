// Package chatlog persists exchanged chat turns in Postgres. Writes happen
// after a response is composed and must never fail the originating request.
package chatlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Config struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

type Record struct {
	bun.BaseModel `bun:"table:chat_logs,alias:cl"`

	ID          int64     `bun:"id,pk,autoincrement"`
	SessionID   string    `bun:"session_id,notnull"`
	UserMessage string    `bun:"user_message,notnull"`
	BotResponse string    `bun:"bot_response,notnull"`
	TraceID     string    `bun:"trace_id,notnull"`
	Intent      string    `bun:"intent"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func NewDB(cfg Config) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("chatlog dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

type Store struct {
	db bun.IDB
}

var _ contractx.ChatLogStore = (*Store)(nil)

func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// Init creates the chat_logs table when absent. Safe on every startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create chat_logs table: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, rec contractx.ChatLog) error {
	row := &Record{
		SessionID:   rec.SessionID,
		UserMessage: rec.UserMessage,
		BotResponse: rec.BotResponse,
		TraceID:     rec.TraceID,
		Intent:      rec.Intent,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// ListRecent returns the newest turns for a session, newest first.
func (s *Store) ListRecent(ctx context.Context, sessionID string, limit int) ([]contractx.ChatLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var rows []Record
	if err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}

	logs := make([]contractx.ChatLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, contractx.ChatLog{
			SessionID:   row.SessionID,
			UserMessage: row.UserMessage,
			BotResponse: row.BotResponse,
			TraceID:     row.TraceID,
			Intent:      row.Intent,
		})
	}
	return logs, nil
}
