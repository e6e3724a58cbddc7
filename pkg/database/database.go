package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	applogger "SentiPulse/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Option configures Open.
type Option func(*Config)

// Config holds relational store settings.
type Config struct {
	Driver          string // postgres or sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	Logger          *applogger.Logger
}

// DB bundles the gorm handle with its pool.
type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to the configured driver. Unique-key violations are translated to
// gorm.ErrDuplicatedKey and every timestamp gorm writes is UTC.
func Open(opts ...Option) (*DB, error) {
	cfg := &Config{
		Driver:          "postgres",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		SlowThreshold:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg.Logger, cfg.SlowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.SQL == nil {
		return fmt.Errorf("database not initialised")
	}
	return db.SQL.PingContext(ctx)
}

// Close releases the pool.
func (db *DB) Close() error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

// AutoMigrate creates or updates tables for the given models.
func (db *DB) AutoMigrate(models ...interface{}) error {
	return db.Gorm.AutoMigrate(models...)
}

// WithDriver sets the driver name.
func WithDriver(driver string) Option {
	return func(c *Config) {
		if driver != "" {
			c.Driver = driver
		}
	}
}

// WithDSN sets the connection string.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithPool sets pool limits. Zero values keep the defaults.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(c *Config) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			c.MaxIdleConns = maxIdle
		}
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

// WithLogger routes slow queries and errors to the application logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func newGormLogger(l *applogger.Logger, slow time.Duration) logger.Interface {
	if l == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return &gormLogger{l: l, slow: slow}
}

// gormLogger forwards gorm's trace output to the zerolog wrapper.
type gormLogger struct {
	l    *applogger.Logger
	slow time.Duration
}

func (g *gormLogger) LogMode(logger.LogLevel) logger.Interface { return g }

func (g *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	g.l.Debug(fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	g.l.Warn(fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	g.l.Error(fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		sqlText, rows := fc()
		g.l.Debug("sql error",
			applogger.Error(err),
			applogger.String("sql", sqlText),
			applogger.Int64("rows", rows),
			applogger.Duration("elapsed_ms", elapsed),
		)
	case g.slow > 0 && elapsed > g.slow:
		sqlText, rows := fc()
		g.l.Warn("slow sql",
			applogger.String("sql", sqlText),
			applogger.Int64("rows", rows),
			applogger.Duration("elapsed_ms", elapsed),
		)
	}
}
