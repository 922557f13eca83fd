package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTunnelRecordPrimaryKey(t *testing.T) {
	tests := []struct {
		name     string
		uplink   uint32
		downlink uint32
		want     uint32
	}{
		{
			name:     "uplink is canonical",
			uplink:   0x1001,
			downlink: 0x2001,
			want:     0x1001,
		},
		{
			name:     "downlink fallback when uplink unassigned",
			uplink:   0,
			downlink: 0x2001,
			want:     0x2001,
		},
		{
			name: "no usable key",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := TunnelRecord{TEIDUplink: tt.uplink, TEIDDownlink: tt.downlink}
			assert.Equal(t, tt.want, rec.PrimaryKey())
		})
	}
}

func TestNewTunnelRecord(t *testing.T) {
	rec := NewTunnelRecord(0x1001, 0x2001)

	assert.Equal(t, uint32(0x1001), rec.TEIDUplink)
	assert.Equal(t, uint32(0x2001), rec.TEIDDownlink)
	assert.NotZero(t, rec.CreatedTimestamp)
	assert.Equal(t, rec.CreatedTimestamp, rec.LastActivityTimestamp)
}

func TestTunnelRecordTouch(t *testing.T) {
	rec := NewTunnelRecord(0x1001, 0)
	rec.Touch(rec.LastActivityTimestamp + 5000)

	assert.Equal(t, rec.CreatedTimestamp+5000, rec.LastActivityTimestamp)
}

func TestTunnelID(t *testing.T) {
	rec := TunnelRecord{TEIDUplink: 0xABCD}
	assert.Equal(t, "teid_0x0000abcd", rec.TunnelID())
}
