// Package postgres implements ports.BotRepository on PostgreSQL.
//
// Each bot is stored as one JSONB document in the server wire format, so the
// table can be shared with services that write the legacy shapes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	_ "github.com/lib/pq"
)

// DefaultTable is the table holding bot documents.
const DefaultTable = "bots"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Repository implements ports.BotRepository using a single JSONB table.
type Repository struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Option configures the Repository.
type Option func(*Repository)

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(r *Repository) {
		r.table = name
	}
}

// WithLogger sets the logger for the repository.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	r := &Repository{db: db, table: DefaultTable, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if !tableName.MatchString(r.table) {
		return nil, fmt.Errorf("invalid table name %q", r.table)
	}
	return r, nil
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the bot table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id         VARCHAR(255) PRIMARY KEY,
		name       VARCHAR(255) NOT NULL DEFAULT '',
		document   JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`, r.table)
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Get loads and normalizes the stored document.
func (r *Repository) Get(ctx context.Context, botID string) (*domain.Bot, error) {
	var doc []byte
	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = $1`, r.table)
	err := r.db.QueryRowContext(ctx, query, botID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, botID)
	}
	if err != nil {
		return nil, fmt.Errorf("load bot %s: %w", botID, err)
	}

	bot, err := codec.DecodeJSON(doc)
	if err != nil {
		r.logger.Warn("stored bot document is unusable", "bot_id", botID, "err", err)
		return nil, fmt.Errorf("bot %s: %w", botID, err)
	}
	if bot.ID == "" {
		bot.ID = botID
	}
	return bot, nil
}

// Save upserts the bot document. Last writer wins.
func (r *Repository) Save(ctx context.Context, bot *domain.Bot) error {
	if bot.ID == "" {
		return fmt.Errorf("bot missing ID")
	}
	doc, err := codec.EncodeJSON(bot)
	if err != nil {
		return fmt.Errorf("encode bot %s: %w", bot.ID, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, name, document, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`, r.table)
	if _, err := r.db.ExecContext(ctx, query, bot.ID, bot.Name, doc, time.Now().UTC()); err != nil {
		return fmt.Errorf("save bot %s: %w", bot.ID, err)
	}
	return nil
}

// List returns all bot ids in ascending order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, r.table))
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a bot. Deleting a missing bot is not an error.
func (r *Repository) Delete(ctx context.Context, botID string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), botID)
	return err
}
