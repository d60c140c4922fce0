package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
)

// PostgresStorage mirrors the current batch's opportunities into a SQL
// table for ad-hoc querying. The JSON snapshot file stays authoritative.
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

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// newPostgresStorageWithDB wires an existing handle, for tests.
func newPostgresStorageWithDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

const insertOpportunity = `
	INSERT INTO arbitrage_opportunities (
		run_id, computed_at, item_name, buy_platform, buy_price, buy_url,
		reference_gross_price, reference_net_price,
		profit_absolute, profit_ratio, mode
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// StoreBatch inserts each opportunity of the batch.
func (p *PostgresStorage) StoreBatch(ctx context.Context, batch *arbitrage.Batch) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	for _, opp := range batch.Opportunities {
		_, err = tx.ExecContext(ctx, insertOpportunity,
			batch.RunID,
			opp.ComputedAt,
			opp.Name,
			opp.BuySource,
			opp.BuyPrice,
			opp.BuyURL,
			opp.ReferenceGrossPrice,
			opp.ReferenceNetPrice,
			opp.ProfitAbsolute,
			opp.ProfitRatio,
			batch.Mode,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert opportunity %q: %w", opp.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.logger.Debug("batch-stored",
		zap.String("run-id", batch.RunID),
		zap.Int("opportunities", batch.TotalOpportunities))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
