package database

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and (minus BeginTx) *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type connKey struct{}

// WithConn returns a context carrying conn as the request's store handle.
func WithConn(ctx context.Context, conn *sql.Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// Querier returns the connection bound to ctx, falling back to the pool.
func Querier(ctx context.Context, db *sql.DB) DBTX {
	if conn, ok := ctx.Value(connKey{}).(*sql.Conn); ok && conn != nil {
		return conn
	}
	return db
}

// ConnMiddleware checks out one connection per request and releases it
// when the handler returns, whatever the outcome.
func ConnMiddleware(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := db.Conn(r.Context())
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to acquire database connection")
				http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			defer conn.Close()
			next.ServeHTTP(w, r.WithContext(WithConn(r.Context(), conn)))
		})
	}
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
