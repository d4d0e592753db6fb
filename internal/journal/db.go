package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"log/slog"
	"time"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBService wraps the journal database connection.
type DBService struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewDBService opens the connection, checks it and applies pending migrations.
func NewDBService(ctx context.Context, connStr string, logger *slog.Logger) (*DBService, error) {
	if connStr == "" {
		return nil, fmt.Errorf("missing database.url")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DBService{DB: db, logger: logger}, nil
}

func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("could not apply migrations: %w", err)
	}
	return nil
}

// Health reports whether the database answers a ping.
func (s *DBService) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	if err := s.DB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	return stats
}

func (s *DBService) Close() error {
	s.logger.Info("Closing database connection")
	return s.DB.Close()
}
