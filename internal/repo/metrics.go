package repo

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"gin-gorm-employees/internal/domain"
)

const (
	opList   = "list"
	opGet    = "get"
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

var storeOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "employee_store_operations_total", Help: "Count of employee store operations by result"},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(storeOps) }

func observe(op string, err error) {
	storeOps.WithLabelValues(op, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant"
	}
	return "error"
}
