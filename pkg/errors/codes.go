package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string identifier of a specific error condition.  Codes
// carry a module prefix separated from a sequence number by an underscore.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel codes returned by GetCode.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Record source error codes
const (
	ErrCodeSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeSourceParseError  ErrorCode = "SRC_002"
)

// Cache error codes
const (
	ErrCodeCacheMiss        ErrorCode = "CACHE_001"
	ErrCodeCacheUnavailable ErrorCode = "CACHE_002"
)

// Reporting error codes
const (
	ErrCodeArchiveFailed        ErrorCode = "RPT_001"
	ErrCodeArchiveNotConfigured ErrorCode = "RPT_002"
	ErrCodeEventPublishFailed   ErrorCode = "RPT_003"
)

// Query error codes
const (
	ErrCodeInvalidFilter    ErrorCode = "QRY_001"
	ErrCodeInvalidDimension ErrorCode = "QRY_002"
	ErrCodeEmptyQuestion    ErrorCode = "QRY_003"
)

// ErrorCodeHTTPStatus maps codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeSourceParseError:  http.StatusBadGateway,

	ErrCodeCacheMiss:        http.StatusNotFound,
	ErrCodeCacheUnavailable: http.StatusServiceUnavailable,

	ErrCodeArchiveFailed:        http.StatusBadGateway,
	ErrCodeArchiveNotConfigured: http.StatusNotImplemented,
	ErrCodeEventPublishFailed:   http.StatusBadGateway,

	ErrCodeInvalidFilter:    http.StatusBadRequest,
	ErrCodeInvalidDimension: http.StatusBadRequest,
	ErrCodeEmptyQuestion:    http.StatusBadRequest,
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError returns true if code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of code.
func ModuleForCode(code ErrorCode) string {
	parts := strings.SplitN(string(code), "_", 2)
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
