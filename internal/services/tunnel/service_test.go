package tunnel

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callflow-go/internal/models"
)

func newTestService() *Service {
	return New(zap.NewNop())
}

func testRecord(teid uint32, imsi string) models.TunnelRecord {
	rec := models.NewTunnelRecord(teid, teid+0x1000)
	rec.IMSI = imsi
	rec.UEIP = fmt.Sprintf("10.0.0.%d", teid%250+1)
	rec.SessionID = fmt.Sprintf("sess-%d", teid)
	rec.APN = "internet"
	return rec
}

func TestRegisterAndFindAllKeys(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262011234567890")
	s.Register(rec)

	byTEID, found := s.FindByTEID(0x1001)
	require.True(t, found)
	assert.Equal(t, rec.IMSI, byTEID.IMSI)

	byIMSI, found := s.FindByIMSI(rec.IMSI)
	require.True(t, found)
	assert.Equal(t, uint32(0x1001), byIMSI.TEIDUplink)

	byIP, found := s.FindByUEIP(rec.UEIP)
	require.True(t, found)
	assert.Equal(t, rec.SessionID, byIP.SessionID)

	bySession, found := s.FindBySessionID(rec.SessionID)
	require.True(t, found)
	assert.Equal(t, rec.UEIP, bySession.UEIP)

	assert.Equal(t, 1, s.Count())
}

func TestRegisterDownlinkFallback(t *testing.T) {
	s := newTestService()

	rec := models.NewTunnelRecord(0, 0x2001)
	rec.IMSI = "262010000000001"
	s.Register(rec)

	_, found := s.FindByTEID(0x2001)
	assert.True(t, found)
}

func TestRegisterWithoutTEIDIsDropped(t *testing.T) {
	s := newTestService()

	rec := models.NewTunnelRecord(0, 0)
	rec.IMSI = "262010000000001"
	s.Register(rec)

	assert.Equal(t, 0, s.Count())
	_, found := s.FindByIMSI(rec.IMSI)
	assert.False(t, found)

	stats := s.Stats()
	assert.Equal(t, uint64(0), stats.TotalCreated)
}

func TestRegisterOverwriteDropsStaleSecondaries(t *testing.T) {
	s := newTestService()

	old := testRecord(0x1001, "262011111111111")
	s.Register(old)

	replacement := models.NewTunnelRecord(0x1001, 0x2001)
	replacement.IMSI = "262012222222222"
	replacement.UEIP = "10.1.1.1"
	replacement.SessionID = "sess-new"
	s.Register(replacement)

	assert.Equal(t, 1, s.Count())

	_, found := s.FindByIMSI(old.IMSI)
	assert.False(t, found, "stale IMSI mapping must be dropped")
	_, found = s.FindByUEIP(old.UEIP)
	assert.False(t, found, "stale UE IP mapping must be dropped")

	rec, found := s.FindByIMSI(replacement.IMSI)
	require.True(t, found)
	assert.Equal(t, "sess-new", rec.SessionID)

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.TotalCreated, "overwrite still counts as a registration")
	assert.Equal(t, uint64(0), stats.TotalDeleted)
}

func TestSecondaryKeyMigratesBetweenTunnels(t *testing.T) {
	s := newTestService()

	first := testRecord(0x1001, "262013333333333")
	s.Register(first)

	// Same subscriber re-attaches under a new TEID
	second := models.NewTunnelRecord(0x9001, 0xA001)
	second.IMSI = first.IMSI
	s.Register(second)

	rec, found := s.FindByIMSI(first.IMSI)
	require.True(t, found)
	assert.Equal(t, uint32(0x9001), rec.TEIDUplink)

	// Removing the old tunnel must not tear down the migrated mapping
	require.True(t, s.Remove(0x1001))
	rec, found = s.FindByIMSI(first.IMSI)
	require.True(t, found)
	assert.Equal(t, uint32(0x9001), rec.TEIDUplink)
}

func TestUpdateRederivesSecondaries(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262014444444444")
	s.Register(rec)

	updated := rec
	updated.UEIP = "192.168.7.7"
	updated.QCI = 5
	require.True(t, s.Update(0x1001, updated))

	_, found := s.FindByUEIP(rec.UEIP)
	assert.False(t, found, "old UE IP mapping must be dropped")

	got, found := s.FindByUEIP("192.168.7.7")
	require.True(t, found)
	assert.Equal(t, uint8(5), got.QCI)
}

func TestUpdateAbsentKey(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262015555555555")
	assert.False(t, s.Update(0x1001, rec))
	assert.Equal(t, 0, s.Count())

	_, found := s.FindByIMSI(rec.IMSI)
	assert.False(t, found, "failed update must leave no secondary mappings")
}

func TestRemove(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262016666666666")
	s.Register(rec)

	assert.True(t, s.Remove(0x1001))
	assert.Equal(t, 0, s.Count())

	_, found := s.FindByTEID(0x1001)
	assert.False(t, found)
	_, found = s.FindByIMSI(rec.IMSI)
	assert.False(t, found)
	_, found = s.FindByUEIP(rec.UEIP)
	assert.False(t, found)
	_, found = s.FindBySessionID(rec.SessionID)
	assert.False(t, found)
}

func TestRemoveRecordReturnsRemoved(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262015550000001")
	s.Register(rec)

	before := s.Stats()
	removed, found := s.RemoveRecord(0x1001)
	require.True(t, found)
	assert.Equal(t, rec.IMSI, removed.IMSI)
	assert.Equal(t, rec.SessionID, removed.SessionID)

	after := s.Stats()
	assert.Equal(t, before.TotalLookups, after.TotalLookups,
		"teardown must not move the lookup counters")
	assert.Equal(t, uint64(1), after.TotalDeleted)

	_, found = s.RemoveRecord(0x1001)
	assert.False(t, found)
	assert.Equal(t, uint64(1), s.Stats().TotalDeleted)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestService()

	s.Register(testRecord(0x1001, "262017777777777"))
	require.True(t, s.Remove(0x1001))

	assert.False(t, s.Remove(0x1001))
	assert.False(t, s.Remove(0xDEAD))

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.TotalDeleted, "removing an absent key must not move the counter")
}

func TestTouchActivity(t *testing.T) {
	s := newTestService()

	rec := testRecord(0x1001, "262018888888888")
	s.Register(rec)

	assert.True(t, s.TouchActivity(0x1001, rec.CreatedTimestamp+60000))
	got, found := s.FindByTEID(0x1001)
	require.True(t, found)
	assert.Equal(t, rec.CreatedTimestamp+60000, got.LastActivityTimestamp)

	assert.False(t, s.TouchActivity(0xBEEF, 12345))
}

func TestClearPreservesCounters(t *testing.T) {
	s := newTestService()

	for i := uint32(1); i <= 5; i++ {
		s.Register(testRecord(0x1000+i, fmt.Sprintf("26201%010d", i)))
	}
	s.Remove(0x1001)
	s.FindByTEID(0x1002)

	before := s.Stats()
	s.Clear()

	assert.Equal(t, 0, s.Count())
	_, found := s.FindByTEID(0x1002)
	assert.False(t, found)

	after := s.Stats()
	assert.Equal(t, before.TotalCreated, after.TotalCreated)
	assert.Equal(t, before.TotalDeleted, after.TotalDeleted)
	assert.GreaterOrEqual(t, after.TotalLookups, before.TotalLookups)
}

func TestStats(t *testing.T) {
	s := newTestService()

	s.Register(testRecord(0x1001, "262019999999999"))

	s.FindByTEID(0x1001) // hit
	s.FindByTEID(0xDEAD) // miss
	s.FindByTEID(0x1001) // hit
	s.FindByIMSI("none") // miss

	stats := s.Stats()
	assert.Equal(t, 1, stats.ActiveTunnels)
	assert.Equal(t, uint64(1), stats.TotalCreated)
	assert.Equal(t, uint64(4), stats.TotalLookups)
	assert.Equal(t, uint64(2), stats.TotalHits)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestStatsEmptyIndex(t *testing.T) {
	s := newTestService()

	stats := s.Stats()
	assert.Equal(t, 0, stats.ActiveTunnels)
	assert.Equal(t, float64(0), stats.HitRate)
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestService()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			s.Register(testRecord(0x10000+i, fmt.Sprintf("26201%010d", i)))
		}(uint32(i))
	}
	wg.Wait()

	require.Equal(t, n, s.Count())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			_, found := s.FindByTEID(0x10000 + i)
			assert.True(t, found)
		}(uint32(i))
	}
	wg.Wait()

	stats := s.Stats()
	assert.Equal(t, uint64(n), stats.TotalCreated)
	assert.Equal(t, uint64(n), stats.TotalHits)
	assert.GreaterOrEqual(t, stats.TotalLookups, stats.TotalHits)
}
