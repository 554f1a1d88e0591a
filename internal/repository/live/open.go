package live

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register "pgx" and "postgres" database/sql drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/oshokin/panel-sentinel/internal/config"
)

const (
	// maxOpenConns caps connections to the live system.
	maxOpenConns = 5
	// maxIdleConns keeps a couple of warm connections between ticks.
	maxIdleConns = 2
	// connMaxLifetime recycles connections hourly.
	connMaxLifetime = time.Hour
)

// Open connects to the live system and verifies the connection within timeout.
func Open(ctx context.Context, cfg *config.LiveConfig, timeout time.Duration) (*sql.DB, error) {
	conn, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open live database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("ping live database: %w", err)
	}

	return conn, nil
}
