package charging

import (
	"sync"
	"time"

	"callflow-go/internal/models"
	"callflow-go/internal/services/diameter"
	"callflow-go/internal/services/tunnel"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service tracks Gx/Gy credit-control sessions, keyed by the Diameter
// Session-Id. CCR request types drive the lifecycle (open on INITIAL,
// refresh on UPDATE, close on TERMINATION, one-shot on EVENT) and CCA
// result codes record the outcome. Sessions are linked to the tunnel index
// by IMSI so the correlator can fold charging state into the subscriber
// timeline.
type Service struct {
	logger     *zap.Logger
	tunnels    *tunnel.Service
	classifier *diameter.Service

	mu       sync.Mutex
	sessions map[string]*models.ChargingSession

	opened   uint64
	closed   uint64
	failed   uint64
	events   uint64
	answers  uint64
	orphaned uint64 // answers with no tracked session
}

// New creates a charging tracker backed by the given tunnel index and
// result code classifier.
func New(tunnels *tunnel.Service, classifier *diameter.Service, logger *zap.Logger) *Service {
	return &Service{
		logger:     logger,
		tunnels:    tunnels,
		classifier: classifier,
		sessions:   make(map[string]*models.ChargingSession),
	}
}

// HandleCCR processes a Credit-Control-Request. EVENT requests are counted
// but open no persistent session. An UPDATE or TERMINATION for an unknown
// Session-Id opens the session implicitly; partial captures routinely miss
// the CCR-I. Returns a copy of the tracked session, or nil for EVENT and
// for a TERMINATION with nothing to close.
func (s *Service) HandleCCR(sessionID string, iface models.DiameterInterface,
	reqType models.CCRequestType, imsi string, ts int64) *models.ChargingSession {

	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	if reqType == models.CCRequestEvent {
		s.mu.Lock()
		s.events++
		s.mu.Unlock()

		s.logger.Debug("Event charging request",
			zap.String("session_id", sessionID),
			zap.String("interface", string(iface)))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]

	switch reqType {
	case models.CCRequestInitial:
		sess = s.openLocked(sessionID, iface, imsi, ts)

	case models.CCRequestUpdate:
		if !exists {
			sess = s.openLocked(sessionID, iface, imsi, ts)
		}
		sess.UpdatedAt = ts

	case models.CCRequestTermination:
		if !exists {
			return nil
		}
		if sess.Status == models.ChargingOpen {
			s.closed++
		}
		sess.Status = models.ChargingClosed
		sess.UpdatedAt = ts
		sess.ClosedAt = ts

	default:
		s.logger.Warn("Unknown CC-Request-Type",
			zap.String("session_id", sessionID),
			zap.Uint32("value", uint32(reqType)))
		return nil
	}

	sess.RequestCount++
	sess.LastRequestType = reqType.String()

	copied := *sess
	return &copied
}

// HandleCCA processes a Credit-Control-Answer. The classification is
// returned even when no session is tracked under the Session-Id — the
// caller may still want the severity band. A permanent failure closes the
// session.
func (s *Service) HandleCCA(sessionID string, resultCode uint32,
	experimental bool, vendorID uint32, ts int64) (models.ResultCode, bool) {

	var rc models.ResultCode
	if experimental {
		rc = s.classifier.ClassifyExperimental(vendorID, resultCode)
	} else {
		rc = s.classifier.Classify(resultCode)
	}

	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers++

	sess, exists := s.sessions[sessionID]
	if !exists {
		s.orphaned++
		return rc, false
	}

	sess.LastResult = &rc
	sess.UpdatedAt = ts

	if rc.IsPermanent && sess.Status == models.ChargingOpen {
		sess.Status = models.ChargingFailed
		sess.ClosedAt = ts
		s.failed++

		s.logger.Debug("Charging session failed",
			zap.String("session_id", sessionID),
			zap.Uint32("result_code", resultCode),
			zap.String("description", rc.Description))
	}

	return rc, true
}

// Get returns a copy of the tracked session under the Diameter Session-Id.
func (s *Service) Get(sessionID string) (*models.ChargingSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return nil, false
	}
	copied := *sess
	return &copied, true
}

// All returns a snapshot of every tracked session.
func (s *Service) All() []models.ChargingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]models.ChargingSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, *sess)
	}
	return sessions
}

// Stats returns charging tracker statistics.
func (s *Service) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := 0
	for _, sess := range s.sessions {
		if sess.Status == models.ChargingOpen {
			open++
		}
	}

	return map[string]interface{}{
		"tracked_sessions": len(s.sessions),
		"open_sessions":    open,
		"total_opened":     s.opened,
		"total_closed":     s.closed,
		"total_failed":     s.failed,
		"event_requests":   s.events,
		"answers":          s.answers,
		"orphaned_answers": s.orphaned,
	}
}

// openLocked creates (or re-creates, last write wins) a tracked session and
// resolves its tunnel link from the index. Caller holds the mutex.
func (s *Service) openLocked(sessionID string, iface models.DiameterInterface,
	imsi string, ts int64) *models.ChargingSession {

	sess := &models.ChargingSession{
		UUID:      uuid.New().String(),
		SessionID: sessionID,
		Interface: iface,
		IMSI:      imsi,
		Status:    models.ChargingOpen,
		OpenedAt:  ts,
		UpdatedAt: ts,
	}

	if imsi != "" {
		if rec, found := s.tunnels.FindByIMSI(imsi); found {
			sess.TunnelTEID = rec.PrimaryKey()
			sess.UEIP = rec.UEIP
			sess.APN = rec.APN
		}
	}

	s.sessions[sessionID] = sess
	s.opened++

	s.logger.Debug("Charging session opened",
		zap.String("uuid", sess.UUID),
		zap.String("session_id", sessionID),
		zap.String("interface", string(iface)),
		zap.String("imsi", imsi),
		zap.Uint32("tunnel_teid", sess.TunnelTEID))

	return sess
}
