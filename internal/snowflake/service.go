package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"
	"snowbook/pkg/errors"
)

// Service provides access to the Snowflake query engine
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
}

// Config holds Snowflake connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// SessionContext selects the compute/storage context a statement runs
// against. It is an immutable value threaded through calls rather than
// ambient session state; empty fields leave the connection default alone.
type SessionContext struct {
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// NewService creates a new Snowflake service
func NewService(config Config) *Service {
	return &Service{config: config}
}

// Connect establishes a connection to Snowflake
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	return errors.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			s.config.Username,
			s.config.Password,
			s.config.Account,
			s.config.Database,
			s.config.Schema,
			s.config.Warehouse,
			s.config.Role,
		)

		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return errors.ConnectionError("Failed to open Snowflake connection", err).
				WithContext("account", s.config.Account).
				WithContext("warehouse", s.config.Warehouse)
		}

		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)

		connCtx, cancel := s.getContext()
		defer cancel()

		if err := db.PingContext(connCtx); err != nil {
			db.Close()

			if strings.Contains(err.Error(), "authentication") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", s.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Check if your account is locked",
					)
			}

			return errors.ConnectionError("Failed to connect to Snowflake", err).
				WithContext("account", s.config.Account).
				AsRecoverable()
		}

		s.db = db
		s.connected = true
		return nil
	})
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

// Query submits resolved SQL text and materializes the tabular result.
// Failures are wrapped as engine errors with the engine's message intact;
// the call is never retried.
func (s *Service) Query(ctx context.Context, sctx SessionContext, query string) (*Result, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to Snowflake").
			WithSuggestions("Call Connect() before submitting queries")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.ConnectionError("Failed to acquire connection", err)
	}
	defer conn.Close()

	if err := applySession(ctx, conn, sctx); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.EngineError("Query engine rejected statement", query, err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, errors.EngineError("Failed to read query results", query, err)
	}

	return result, nil
}

// Exec submits a statement whose result set is irrelevant (DDL, DML side
// effects). Objects it creates persist in Snowflake and are not tracked here.
func (s *Service) Exec(ctx context.Context, sctx SessionContext, statement string) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to Snowflake").
			WithSuggestions("Call Connect() before submitting statements")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.ConnectionError("Failed to acquire connection", err)
	}
	defer conn.Close()

	if err := applySession(ctx, conn, sctx); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, statement); err != nil {
		return errors.EngineError("Query engine rejected statement", statement, err)
	}

	return nil
}

// TestConnection verifies the connection is usable
func (s *Service) TestConnection() error {
	if !s.connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	ctx, cancel := s.getContext()
	defer cancel()

	return s.db.PingContext(ctx)
}

// Session binds a Service to a SessionContext so each query runs in that
// context without ambient state. It satisfies notebook.Engine.
type Session struct {
	service *Service
	sctx    SessionContext
}

// NewSession creates a session bound to the given context
func NewSession(service *Service, sctx SessionContext) *Session {
	return &Session{service: service, sctx: sctx}
}

// Query submits resolved SQL text within the session's context
func (s *Session) Query(ctx context.Context, query string) (*Result, error) {
	return s.service.Query(ctx, s.sctx, query)
}

// Context returns the session's immutable context
func (s *Session) Context() SessionContext {
	return s.sctx
}

// Helper methods

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// applySession pins the session context onto a single pooled connection.
// USE statements are per-connection in Snowflake, so they must run on the
// same conn as the query that follows.
func applySession(ctx context.Context, conn *sql.Conn, sctx SessionContext) error {
	use := func(kind, name string) error {
		if name == "" {
			return nil
		}
		stmt := fmt.Sprintf("USE %s %s", kind, name)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return errors.EngineError(fmt.Sprintf("Failed to select %s", strings.ToLower(kind)), stmt, err)
		}
		return nil
	}

	if err := use("ROLE", sctx.Role); err != nil {
		return err
	}
	if err := use("WAREHOUSE", sctx.Warehouse); err != nil {
		return err
	}
	if err := use("DATABASE", sctx.Database); err != nil {
		return err
	}
	return use("SCHEMA", sctx.Schema)
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return errors.ConfigError("account is required", "snowflake.account")
	}
	if config.Username == "" {
		return errors.ConfigError("username is required", "snowflake.username")
	}
	if config.Password == "" {
		return errors.ConfigError("password is required", "snowflake.password")
	}
	if config.Warehouse == "" {
		return errors.ConfigError("warehouse is required", "snowflake.warehouse")
	}
	return nil
}
