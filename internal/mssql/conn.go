// ABOUTME: SQL Server connectivity through go-mssqldb
// ABOUTME: Builds the connection string and hands out one dedicated session per script
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/harper/chat2db/internal/config"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	_ "github.com/microsoft/go-mssqldb"
)

// DriverName is the database/sql driver registered by go-mssqldb
const DriverName = "sqlserver"

// ConnConfig selects the server and authentication mode
type ConnConfig struct {
	Server         string
	Database       string
	User           string
	Password       string
	UseWindowsAuth bool
}

// ConnConfigFrom maps application config onto ConnConfig
func ConnConfigFrom(cfg *config.Config) ConnConfig {
	return ConnConfig{
		Server:         cfg.DBServer,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		UseWindowsAuth: cfg.UseWindowsAuth,
	}
}

// BuildConnString returns an ADO-style connection string. With Windows
// authentication and no explicit user the driver negotiates integrated
// security.
func BuildConnString(c ConnConfig) string {
	server := c.Server
	if server == "" {
		server = "localhost"
	}
	parts := []string{"server=" + server, "app name=chat2db"}
	if c.Database != "" {
		parts = append(parts, "database="+c.Database)
	}
	if c.UseWindowsAuth && c.User == "" {
		parts = append(parts, "integrated security=SSPI")
	} else {
		parts = append(parts, "user id="+c.User, "password="+c.Password)
	}
	return strings.Join(parts, ";")
}

// QuoteName brackets an identifier for use in dynamic SQL
func QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Connector opens sessions against one server
type Connector struct {
	dsn  string
	once sync.Once
	db   *sql.DB
	err  error
}

// NewConnector creates a connector; nothing is dialled until Open
func NewConnector(c ConnConfig) *Connector {
	return &Connector{dsn: BuildConnString(c)}
}

func (c *Connector) pool() (*sql.DB, error) {
	c.once.Do(func() {
		c.db, c.err = sql.Open(DriverName, c.dsn)
	})
	return c.db, c.err
}

// Open returns a dedicated session so USE carries across batches
func (c *Connector) Open(ctx context.Context) (executor.Conn, error) {
	db, err := c.pool()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open SQL Server driver", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to connect to SQL Server", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to connect to SQL Server", err)
	}
	return &session{conn: conn}, nil
}

// Close releases the connection pool
func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// session adapts *sql.Conn to executor.Conn
type session struct {
	conn *sql.Conn
}

func (s *session) Exec(ctx context.Context, query string) error {
	_, err := s.conn.ExecContext(ctx, query)
	return err
}

func (s *session) Query(ctx context.Context, query string) (executor.Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to release session: %w", err)
	}
	return nil
}
