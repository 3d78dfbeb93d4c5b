package response

import (
	"context"
	"errors"
	"net/http"

	"gin-gorm-employees/internal/domain"
)

// 主机边界自身产生的错误
var (
	ErrTooManyRequests = errors.New("too many requests")
	ErrServerBusy      = errors.New("server busy")
	ErrBodyTooLarge    = errors.New("request body too large")
)

const (
	CodeBadRequest     = http.StatusBadRequest
	CodeNotFound       = http.StatusNotFound
	CodeBodyTooLarge   = http.StatusRequestEntityTooLarge
	CodeTooMany        = http.StatusTooManyRequests
	CodeServerError    = http.StatusInternalServerError
	CodeUnavailable    = http.StatusServiceUnavailable
	CodeGatewayTimeout = http.StatusGatewayTimeout
)

// CodeMsgMap 错误页上对外展示的通用文案
var CodeMsgMap = map[int]string{
	CodeBadRequest:     "The submitted data could not be processed.",
	CodeNotFound:       "The requested employee does not exist.",
	CodeBodyTooLarge:   "The request is too large.",
	CodeTooMany:        "Too many requests, please retry shortly.",
	CodeServerError:    "An error occurred while processing your request.",
	CodeUnavailable:    "The database is currently unavailable.",
	CodeGatewayTimeout: "The request took too long to complete.",
}

// CodeOf 把错误映射为 HTTP 状态码
func CodeOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrValidation):
		return CodeBadRequest
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, ErrServerBusy):
		return CodeUnavailable
	case errors.Is(err, ErrTooManyRequests):
		return CodeTooMany
	case errors.Is(err, ErrBodyTooLarge):
		return CodeBodyTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return CodeGatewayTimeout
	}
	return CodeServerError
}
