package util

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"strings"

	"cantiere/pkg/circuitbreaker"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsRetryableError determines if an error is retryable
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	errStr := err.Error()

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// 熔断器打开 - 后端恢复后可重试
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return true, "circuit_open"
	}

	// Context timeout - 可重试
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// Postgres: 连接类错误 (class 08) 与资源不足 (class 53) 可重试
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") {
			return true, "db_connection_error"
		}
		return false, "db_error"
	}

	// 文件后端：权限问题重试无意义
	if errors.Is(err, fs.ErrPermission) {
		return false, "storage_permission"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// sqlite 写锁竞争
	if strings.Contains(errStr, "database is locked") || strings.Contains(errStr, "SQLITE_BUSY") {
		return true, "db_busy"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return true, "db_connection_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
