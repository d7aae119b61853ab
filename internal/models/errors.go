package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a SyncError.
type ErrorCode string

const (
	// CodeOfflineEnqueued signals deferred work, not a failure.
	CodeOfflineEnqueued       ErrorCode = "OFFLINE_ENQUEUED"
	CodeSyncInProgress        ErrorCode = "SYNC_IN_PROGRESS"
	CodePushFailed            ErrorCode = "PUSH_FAILED"
	CodePullFailed            ErrorCode = "PULL_FAILED"
	CodeConflictResolution    ErrorCode = "CONFLICT_RESOLUTION_FAILED"
	CodeOperationNotFound     ErrorCode = "OPERATION_NOT_FOUND"
	CodeRetryLimitExceeded    ErrorCode = "RETRY_LIMIT_EXCEEDED"
	CodeOperationNotRetryable ErrorCode = "OPERATION_NOT_RETRYABLE"
	CodeApplyFailed           ErrorCode = "APPLY_FAILED"
)

// SyncError represents an error that occurred during synchronization.
type SyncError struct {
	Err       error     `json:"-"`
	Code      ErrorCode `json:"code"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s [%s]: %s", e.Op, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches SyncErrors by code so callers can compare against the
// package level sentinels with errors.Is.
func (e *SyncError) Is(target error) bool {
	var t *SyncError
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Code == e.Code
}

// NewSyncError creates a SyncError wrapping cause.
func NewSyncError(code ErrorCode, op, message string, retryable bool, cause error) *SyncError {
	return &SyncError{
		Code:      code,
		Op:        op,
		Message:   message,
		Retryable: retryable,
		Err:       cause,
	}
}

// AsSyncError extracts a *SyncError from err.
func AsSyncError(err error) (*SyncError, bool) {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr, true
	}
	return nil, false
}
