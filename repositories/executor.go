package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// SQLExecutor позволяет выполнять запросы как через *sql.DB, так и внутри *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func pqErrorCode(err error) (string, *pq.Error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr
	}
	return "", nil
}

func isUniqueViolation(err error, constraint string) bool {
	code, pqErr := pqErrorCode(err)
	return code == pgerrcode.UniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// isProcedureUnavailable reports whether err means the promotion function is
// missing or no longer matches the expected signature.
func isProcedureUnavailable(err error) bool {
	if err == nil {
		return false
	}
	switch code, _ := pqErrorCode(err); code {
	case pgerrcode.UndefinedFunction, pgerrcode.UndefinedColumn, pgerrcode.DatatypeMismatch:
		return true
	case "":
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "function") && strings.Contains(msg, "does not exist")
	default:
		return false
	}
}
