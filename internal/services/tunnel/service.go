package tunnel

import (
	"sync"

	"callflow-go/internal/models"

	"go.uber.org/zap"
)

// Service is the multi-key tunnel correlation index. It owns all tunnel
// record storage: the primary TEID table plus secondary indexes by IMSI,
// UE IP and session id, all guarded by a single mutex so registrations,
// updates, deletions and lookups are linearizable with respect to each
// other. Lookups return copies; callers never hold a reference into the
// tables.
//
// The index does not expire entries on its own. Removal is driven by the
// control-plane decoder (Delete Session) or by an external staleness sweep
// over the last-activity timestamps.
type Service struct {
	logger *zap.Logger

	mu      sync.Mutex
	tunnels map[uint32]models.TunnelRecord

	// Secondary key -> primary TEID
	imsiIndex    map[string]uint32
	ueIPIndex    map[string]uint32
	sessionIndex map[string]uint32

	// Lifetime statistics, kept under the same mutex as the tables they
	// describe. Clear does not reset them.
	created uint64
	deleted uint64
	lookups uint64
	hits    uint64
}

// New creates an empty tunnel index.
func New(logger *zap.Logger) *Service {
	return &Service{
		logger:       logger,
		tunnels:      make(map[uint32]models.TunnelRecord),
		imsiIndex:    make(map[string]uint32),
		ueIPIndex:    make(map[string]uint32),
		sessionIndex: make(map[string]uint32),
	}
}

// Register files a tunnel record under its primary TEID. Registration is
// last-write-wins: an existing record under the same key is replaced and its
// stale secondary mappings dropped, so session re-establishment after
// signaling loss never errors. A record with no usable TEID cannot be
// indexed and is dropped with a warning.
func (s *Service) Register(rec models.TunnelRecord) {
	key := rec.PrimaryKey()
	if key == 0 {
		s.logger.Warn("Cannot register tunnel without a TEID",
			zap.String("imsi", rec.IMSI),
			zap.String("session_id", rec.SessionID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.tunnels[key]; exists {
		s.logger.Debug("Replacing existing tunnel",
			zap.String("tunnel_id", rec.TunnelID()),
			zap.String("imsi", rec.IMSI))
		s.unindexLocked(key, old)
	} else {
		s.logger.Debug("Registering new tunnel",
			zap.String("tunnel_id", rec.TunnelID()),
			zap.String("imsi", rec.IMSI),
			zap.String("ue_ip", rec.UEIP),
			zap.String("apn", rec.APN))
	}

	s.tunnels[key] = rec
	s.indexLocked(key, rec)
	s.created++
}

// Update replaces the record stored under teid and re-derives its secondary
// mappings. Returns false with no side effects when no record exists under
// teid. The record is always stored under the key the caller passed; a
// changed primary TEID must go through Register instead.
func (s *Service) Update(teid uint32, rec models.TunnelRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.tunnels[teid]
	if !exists {
		return false
	}

	s.unindexLocked(teid, old)
	s.tunnels[teid] = rec
	s.indexLocked(teid, rec)
	return true
}

// Remove deletes the record under teid and every secondary mapping that
// references it. Removing an absent key is a no-op returning false; no
// counter moves.
func (s *Service) Remove(teid uint32) bool {
	_, removed := s.RemoveRecord(teid)
	return removed
}

// RemoveRecord deletes like Remove and returns a copy of the removed record,
// so callers archiving the tunnel on teardown need no separate lookup. The
// removal and the read are one atomic step; the lookup counters do not move.
func (s *Service) RemoveRecord(teid uint32) (models.TunnelRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.tunnels[teid]
	if !exists {
		return models.TunnelRecord{}, false
	}

	s.unindexLocked(teid, rec)
	delete(s.tunnels, teid)
	s.deleted++

	s.logger.Debug("Deleted tunnel", zap.String("tunnel_id", rec.TunnelID()))
	return rec, true
}

// FindByTEID looks up a tunnel by its primary TEID. Used on the GTP-U path
// to attach subscriber identity to otherwise-anonymous packets. A miss is a
// normal outcome, not an error.
func (s *Service) FindByTEID(teid uint32) (models.TunnelRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++

	rec, exists := s.tunnels[teid]
	if exists {
		s.hits++
	}
	return rec, exists
}

// FindByIMSI looks up the tunnel currently associated with a subscriber.
func (s *Service) FindByIMSI(imsi string) (models.TunnelRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findBySecondaryLocked(s.imsiIndex, imsi)
}

// FindByUEIP looks up the tunnel currently holding an allocated UE address.
func (s *Service) FindByUEIP(ueIP string) (models.TunnelRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findBySecondaryLocked(s.ueIPIndex, ueIP)
}

// FindBySessionID looks up a tunnel by its control-plane session id.
func (s *Service) FindBySessionID(sessionID string) (models.TunnelRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findBySecondaryLocked(s.sessionIndex, sessionID)
}

// TouchActivity bumps the last-activity timestamp of the tunnel under teid.
// Counts as a lookup for statistics purposes since the user-plane feed
// drives it once per observed packet batch.
func (s *Service) TouchActivity(teid uint32, ts int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++

	rec, exists := s.tunnels[teid]
	if !exists {
		return false
	}
	s.hits++

	rec.Touch(ts)
	s.tunnels[teid] = rec
	return true
}

// All returns a snapshot copy of every stored record, consistent as of lock
// acquisition.
func (s *Service) All() []models.TunnelRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.TunnelRecord, 0, len(s.tunnels))
	for _, rec := range s.tunnels {
		records = append(records, rec)
	}
	return records
}

// Count returns the number of primary entries.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tunnels)
}

// Clear atomically empties all tables. The lifetime counters are not reset.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Clearing all tunnels", zap.Int("count", len(s.tunnels)))

	s.tunnels = make(map[uint32]models.TunnelRecord)
	s.imsiIndex = make(map[string]uint32)
	s.ueIPIndex = make(map[string]uint32)
	s.sessionIndex = make(map[string]uint32)
}

// Stats returns a snapshot of the lifetime counters and the derived hit rate.
func (s *Service) Stats() models.TunnelIndexStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.TunnelIndexStats{
		ActiveTunnels: len(s.tunnels),
		TotalCreated:  s.created,
		TotalDeleted:  s.deleted,
		TotalLookups:  s.lookups,
		TotalHits:     s.hits,
	}
	if s.lookups > 0 {
		stats.HitRate = float64(s.hits) / float64(s.lookups)
	}
	return stats
}

// findBySecondaryLocked resolves a secondary key to the primary table and
// copies the record out. Caller holds the mutex.
func (s *Service) findBySecondaryLocked(index map[string]uint32, key string) (models.TunnelRecord, bool) {
	s.lookups++

	if teid, ok := index[key]; ok {
		if rec, ok := s.tunnels[teid]; ok {
			s.hits++
			return rec, true
		}
	}
	return models.TunnelRecord{}, false
}

// indexLocked inserts or overwrites the secondary mappings for every
// non-empty secondary field of rec. Overwriting migrates a secondary key
// that re-appears under a new tunnel. Caller holds the mutex.
func (s *Service) indexLocked(teid uint32, rec models.TunnelRecord) {
	if rec.IMSI != "" {
		s.imsiIndex[rec.IMSI] = teid
	}
	if rec.UEIP != "" {
		s.ueIPIndex[rec.UEIP] = teid
	}
	if rec.SessionID != "" {
		s.sessionIndex[rec.SessionID] = teid
	}
}

// unindexLocked drops the secondary mappings of rec, but only where they
// still point at teid. A mapping already migrated to another tunnel stays
// untouched. Caller holds the mutex.
func (s *Service) unindexLocked(teid uint32, rec models.TunnelRecord) {
	if rec.IMSI != "" && s.imsiIndex[rec.IMSI] == teid {
		delete(s.imsiIndex, rec.IMSI)
	}
	if rec.UEIP != "" && s.ueIPIndex[rec.UEIP] == teid {
		delete(s.ueIPIndex, rec.UEIP)
	}
	if rec.SessionID != "" && s.sessionIndex[rec.SessionID] == teid {
		delete(s.sessionIndex, rec.SessionID)
	}
}
