package models

import (
	"fmt"
	"time"
)

// TunnelRecord represents one correlated GTP tunnel spanning the control and
// user planes. It is built from GTPv2-C Create/Modify Session signaling and
// consumed when attaching subscriber identity to GTP-U packets.
type TunnelRecord struct {
	// TEID values for correlation. Each leg is an independent namespace,
	// equal values on different legs are unrelated tunnels.
	TEIDUplink   uint32 `json:"teid_uplink"`   // S1-U S-GW TEID (UE -> Network)
	TEIDDownlink uint32 `json:"teid_downlink"` // S1-U eNodeB TEID (Network -> UE)
	TEIDS5SGW    uint32 `json:"teid_s5_sgw"`   // S5/S8 S-GW TEID
	TEIDS5PGW    uint32 `json:"teid_s5_pgw"`   // S5/S8 P-GW TEID

	// Subscriber information
	IMSI   string `json:"imsi"`
	UEIP   string `json:"ue_ip"`
	APN    string `json:"apn"`
	MSISDN string `json:"msisdn,omitempty"`

	// Session information
	SessionID   string `json:"session_id"`
	EPSBearerID uint8  `json:"eps_bearer_id"`
	QCI         uint8  `json:"qci"`

	// Network information
	ServingNetwork string `json:"serving_network,omitempty"` // PLMN ID
	RATType        string `json:"rat_type,omitempty"`

	// Lifecycle timestamps (unix milliseconds)
	CreatedTimestamp      int64 `json:"created_timestamp"`
	LastActivityTimestamp int64 `json:"last_activity_timestamp"`
}

// NewTunnelRecord creates a tunnel record with both lifecycle timestamps
// set to the current time.
func NewTunnelRecord(teidUplink, teidDownlink uint32) TunnelRecord {
	now := time.Now().UnixMilli()
	return TunnelRecord{
		TEIDUplink:            teidUplink,
		TEIDDownlink:          teidDownlink,
		CreatedTimestamp:      now,
		LastActivityTimestamp: now,
	}
}

// PrimaryKey returns the TEID the record is filed under in the tunnel index.
// The uplink S1-U TEID is canonical; the downlink TEID is used when the
// uplink leg has not been assigned yet. Zero means the record is not
// indexable.
func (t *TunnelRecord) PrimaryKey() uint32 {
	if t.TEIDUplink != 0 {
		return t.TEIDUplink
	}
	return t.TEIDDownlink
}

// Touch updates the last-activity timestamp.
func (t *TunnelRecord) Touch(ts int64) {
	t.LastActivityTimestamp = ts
}

// TunnelID returns the primary TEID formatted for logs and API responses.
func (t *TunnelRecord) TunnelID() string {
	return fmt.Sprintf("teid_0x%08x", t.PrimaryKey())
}

// TunnelIndexStats is a snapshot of the tunnel index lifetime counters.
// The counters survive Clear; only active_tunnels reflects current state.
type TunnelIndexStats struct {
	ActiveTunnels int     `json:"active_tunnels"`
	TotalCreated  uint64  `json:"total_tunnels_created"`
	TotalDeleted  uint64  `json:"total_tunnels_deleted"`
	TotalLookups  uint64  `json:"total_lookups"`
	TotalHits     uint64  `json:"total_lookup_hits"`
	HitRate       float64 `json:"lookup_hit_rate"`
}
