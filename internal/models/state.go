package models

import "time"

// SyncState is the observable snapshot of the sync engine.
type SyncState struct {
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	PendingChanges int        `json:"pending_changes"`
	FailedChanges  int        `json:"failed_changes"`
	Conflicts      int        `json:"conflicts"`
	IsOnline       bool       `json:"is_online"`
	IsSyncing      bool       `json:"is_syncing"`
}

// SyncResult contains the outcome of one sync, push or pull call.
type SyncResult struct {
	StartedAt time.Time     `json:"started_at"`
	Conflicts []Conflict    `json:"conflicts,omitempty"`
	Errors    []*SyncError  `json:"errors,omitempty"`
	Pushed    int           `json:"pushed"`
	Pulled    int           `json:"pulled"`
	Applied   int           `json:"applied"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
}

// AddError appends a non-fatal error and marks the result unsuccessful
// unless the error only signals deferred work.
func (r *SyncResult) AddError(err *SyncError) {
	r.Errors = append(r.Errors, err)
	if err.Code != CodeOfflineEnqueued {
		r.Success = false
	}
}

// HasCode reports whether any recorded error carries code.
func (r *SyncResult) HasCode(code ErrorCode) bool {
	for _, err := range r.Errors {
		if err.Code == code {
			return true
		}
	}
	return false
}
