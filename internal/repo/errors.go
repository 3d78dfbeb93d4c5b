package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"gin-gorm-employees/internal/domain"
)

// MySQL 中属于字段约束的错误号
var mysqlConstraintErrors = map[uint16]struct{}{
	1048: {}, // column cannot be null
	1062: {}, // duplicate entry
	1264: {}, // out of range
	1292: {}, // incorrect datetime value
	1366: {}, // incorrect value
	1406: {}, // data too long
}

// classify 把驱动/ORM 错误归类为 domain 中的哨兵错误
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, op)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(domain.ErrNotFound, op)
	case isUnavailable(err):
		return errors.Wrapf(domain.ErrStoreUnavailable, "%s: %v", op, err)
	case isConstraint(err):
		return errors.Wrapf(domain.ErrValidation, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}

func isUnavailable(err error) bool {
	var opErr *net.OpError
	var connErr *pgconn.ConnectError
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.As(err, &opErr) ||
		errors.As(err, &connErr) ||
		strings.Contains(err.Error(), "sql: database is closed")
}

func isConstraint(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		_, ok := mysqlConstraintErrors[myErr.Number]
		return ok
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 22xxx data exception, 23xxx integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "constraint violation") ||
		strings.Contains(msg, "string or binary data would be truncated")
}
