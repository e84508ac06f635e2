package models

import "time"

// PunchRequest is a punch as submitted by a client. Timestamp is optional,
// in "YYYY-MM-DD HH:MM:SS" form.
type PunchRequest struct {
	RecordType   string `json:"type"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// PunchResult tells the caller where the punch landed.
type PunchResult struct {
	Timestamp time.Time
	Queued    bool
}

// PunchView is one history row.
type PunchView struct {
	RecordType   string `json:"type"`
	Timestamp    string `json:"timestamp"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Pending      bool   `json:"pending"`
}

// SyncResult is the outcome of reconciling one matricula. Errors holds one
// message per row that failed to migrate; the rows stay queued.
type SyncResult struct {
	Migrated int      `json:"migrated"`
	Errors   []string `json:"errors"`
}
