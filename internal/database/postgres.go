package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var db *sql.DB

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// GetConfig returns database configuration with defaults
func GetConfig() *DBConfig {
	viper.SetDefault("database.driver", DriverPostgres)
	viper.SetDefault("database.dsn", "file:ledger.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "bank_ledger")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)
	viper.SetDefault("database.ping_timeout", time.Second*5)

	return &DBConfig{
		Driver:          viper.GetString("database.driver"),
		DSN:             viper.GetString("database.dsn"),
		Host:            viper.GetString("database.host"),
		Port:            viper.GetString("database.port"),
		User:            viper.GetString("database.user"),
		Password:        viper.GetString("database.password"),
		Name:            viper.GetString("database.name"),
		SSLMode:         viper.GetString("database.ssl_mode"),
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		PingTimeout:     viper.GetDuration("database.ping_timeout"),
	}
}

// ConnectionString builds the driver-specific data source name.
func (c *DBConfig) ConnectionString() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		), nil
	case DriverSQLite:
		if c.DSN == "" {
			return "", fmt.Errorf("database dsn cannot be empty for driver %s", c.Driver)
		}
		return c.DSN, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Open opens and verifies a connection pool for config.
func Open(ctx context.Context, config *DBConfig) (*sql.DB, error) {
	connStr, err := config.ConnectionString()
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(config.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
	defer cancel()
	if err = conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	if config.Driver == DriverSQLite {
		// sqlite allows a single writer; keeping the one connection idle also
		// keeps in-memory databases alive
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	return conn, nil
}

// InitDB initializes the database connection
func InitDB(ctx context.Context) (*sql.DB, error) {
	config := GetConfig()

	var err error
	db, err = Open(ctx, config)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Database connection established", zap.String("driver", config.Driver))
	return db, nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// InitDatabase initializes database with error handling
func InitDatabase(ctx context.Context) *sql.DB {
	db, err := InitDB(ctx)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	return db
}

// TxOptions returns the options ledger transactions are started with.
// SQLite serializes writers on its own and only accepts the default level.
func TxOptions(driver string) *sql.TxOptions {
	if driver == DriverSQLite {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}
