package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreChance stores a detected chance in PostgreSQL. Leg fields are
// stored flat (leg0/leg1/leg2 columns) rather than as a JSONB array since
// the cycle's arity is fixed at three.
func (p *PostgresStorage) StoreChance(ctx context.Context, ev types.ChanceEvent) error {
	query := `
		INSERT INTO arbitrage_chances (
			cycle_id, detected_at,
			leg0_symbol, leg0_side, leg0_price, leg0_size,
			leg1_symbol, leg1_side, leg1_price, leg1_size,
			leg2_symbol, leg2_side, leg2_price, leg2_size,
			expected_profit, notional
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		ev.CycleID,
		ev.DetectedAt,
		ev.LegSymbols[0], ev.LegSides[0].String(), ev.LegPrices[0].String(), ev.LegSizes[0].String(),
		ev.LegSymbols[1], ev.LegSides[1].String(), ev.LegPrices[1].String(), ev.LegSizes[1].String(),
		ev.LegSymbols[2], ev.LegSides[2].String(), ev.LegPrices[2].String(), ev.LegSizes[2].String(),
		ev.ExpectedProfit.String(),
		ev.Notional.String(),
	)
	if err != nil {
		return fmt.Errorf("insert chance: %w", err)
	}

	p.logger.Debug("chance-stored", zap.String("cycle-id", ev.CycleID))
	return nil
}

// StoreOrder stores an admitted order placement in PostgreSQL.
func (p *PostgresStorage) StoreOrder(ctx context.Context, ev types.OrderEvent) error {
	query := `
		INSERT INTO arbitrage_orders (
			correlation_id, cycle_id, commit_at,
			leg0_symbol, leg0_side, leg0_price, leg0_size,
			leg1_symbol, leg1_side, leg1_price, leg1_size,
			leg2_symbol, leg2_side, leg2_price, leg2_size
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		ev.CorrelationID,
		ev.CycleID,
		ev.CommitAt,
		ev.LegSymbols[0], ev.LegSides[0].String(), ev.LegPrices[0].String(), ev.LegSizes[0].String(),
		ev.LegSymbols[1], ev.LegSides[1].String(), ev.LegPrices[1].String(), ev.LegSizes[1].String(),
		ev.LegSymbols[2], ev.LegSides[2].String(), ev.LegPrices[2].String(), ev.LegSizes[2].String(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	p.logger.Debug("order-stored", zap.String("correlation-id", ev.CorrelationID), zap.String("cycle-id", ev.CycleID))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
