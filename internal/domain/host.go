package domain

import "time"

// HostRecord is the last-known state of one dynamic DNS name.
// Records handed out by a store are copies; later writes never change them.
type HostRecord struct {
	Name        string    `json:"name" db:"name"`
	Address     string    `json:"address" db:"address"`           // IPv4 or IPv6 literal
	LastUpdated time.Time `json:"last_updated" db:"last_updated"` // last address change
	LastTouched time.Time `json:"last_touched" db:"last_touched"` // last reconciliation
}

// Outcome is the terminal state of a successful reconciliation.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeTouched Outcome = "touched"
)

// ReconcileResult is returned by the reconciler.
type ReconcileResult struct {
	Outcome Outcome     `json:"outcome"`
	Host    *HostRecord `json:"host"`
}

// DebugInfo echoes the parsed request back to the caller when debug=true.
type DebugInfo struct {
	Method        string `json:"method"`
	Hostname      string `json:"hostname"`
	Address       string `json:"address"`
	RemoteAddress string `json:"remote_address"`
}

// UpdateResponse is the response body of an update request.
type UpdateResponse struct {
	ReconcileResult
	Debug *DebugInfo `json:"debug,omitempty"`
}

// HostResponse is the response body of a lookup request.
type HostResponse struct {
	Host  *HostRecord `json:"host"`
	Debug *DebugInfo  `json:"debug,omitempty"`
}
