package models

// ChargingStatus represents the lifecycle state of a tracked Gx/Gy
// charging session.
type ChargingStatus string

const (
	ChargingOpen   ChargingStatus = "open"   // CCR-I seen, session in progress
	ChargingClosed ChargingStatus = "closed" // CCR-T seen
	ChargingFailed ChargingStatus = "failed" // permanent-failure answer seen
)

// ChargingSession is one tracked Diameter credit-control session, keyed by
// the Diameter Session-Id and linked where possible to the GTP tunnel
// carrying the subscriber's traffic.
type ChargingSession struct {
	UUID      string            `json:"uuid"`
	SessionID string            `json:"session_id"` // Diameter Session-Id
	Interface DiameterInterface `json:"interface"`
	IMSI      string            `json:"imsi,omitempty"`
	Status    ChargingStatus    `json:"status"`

	// Tunnel link resolved from the tunnel index at CCR-I time
	TunnelTEID uint32 `json:"tunnel_teid,omitempty"`
	UEIP       string `json:"ue_ip,omitempty"`
	APN        string `json:"apn,omitempty"`

	// Lifecycle timestamps (unix milliseconds)
	OpenedAt  int64 `json:"opened_at"`
	UpdatedAt int64 `json:"updated_at"`
	ClosedAt  int64 `json:"closed_at,omitempty"`

	RequestCount    uint32      `json:"request_count"`
	LastRequestType string      `json:"last_request_type"`
	LastResult      *ResultCode `json:"last_result,omitempty"`
}
