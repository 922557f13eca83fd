package handlers

import (
	"net/http"

	"callflow-go/internal/database"
	"callflow-go/internal/models"
	"callflow-go/internal/services/charging"
	"callflow-go/internal/services/diameter"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DiameterHandler exposes result code classification and the Gx/Gy
// charging session tracker over HTTP.
type DiameterHandler struct {
	classifier *diameter.Service
	charging   *charging.Service
	db         *database.PostgreSQL
	logger     *zap.Logger
}

// NewDiameterHandler creates a Diameter handler. db may be nil when no
// archive is configured.
func NewDiameterHandler(classifier *diameter.Service, chargingService *charging.Service,
	db *database.PostgreSQL, logger *zap.Logger) *DiameterHandler {

	return &DiameterHandler{
		classifier: classifier,
		charging:   chargingService,
		db:         db,
		logger:     logger,
	}
}

// RegisterRoutes registers all Diameter routes
func (h *DiameterHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	v1.POST("/diameter/classify", h.Classify)
	v1.POST("/diameter/ccr", h.HandleCCR)
	v1.POST("/diameter/cca", h.HandleCCA)

	v1.GET("/diameter/sessions", h.GetAllSessions)
	v1.GET("/diameter/sessions/stats", h.GetStats)
	v1.GET("/diameter/session/:sid", h.GetSession)
}

// Classify classifies a Result-Code or Experimental-Result value
// POST /api/v1/diameter/classify
func (h *DiameterHandler) Classify(c *gin.Context) {
	var req struct {
		ResultCode   uint32 `json:"result_code" binding:"required"`
		Experimental bool   `json:"experimental"`
		VendorID     uint32 `json:"vendor_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rc models.ResultCode
	if req.Experimental {
		rc = h.classifier.ClassifyExperimental(req.VendorID, req.ResultCode)
	} else {
		rc = h.classifier.Classify(req.ResultCode)
	}

	c.JSON(http.StatusOK, rc)
}

// HandleCCR feeds a decoded Credit-Control-Request into the tracker
// POST /api/v1/diameter/ccr
func (h *DiameterHandler) HandleCCR(c *gin.Context) {
	var req struct {
		SessionID   string `json:"session_id" binding:"required"`
		Interface   string `json:"interface"`
		RequestType uint32 `json:"cc_request_type" binding:"required"`
		IMSI        string `json:"imsi"`
		Timestamp   int64  `json:"timestamp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqType, known := models.CCRequestTypeFromWire(req.RequestType)
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown CC-Request-Type"})
		return
	}

	iface := models.DiameterInterface(req.Interface)
	if iface == "" {
		iface = models.InterfaceGy
	}

	sess := h.charging.HandleCCR(req.SessionID, iface, reqType, req.IMSI, req.Timestamp)

	// Archive on close so the charging timeline survives tracker restarts
	if sess != nil && sess.Status == models.ChargingClosed && h.db != nil {
		if err := h.db.SaveChargingHistory(sess); err != nil {
			h.logger.Error("Failed to archive charging session",
				zap.String("session_id", sess.SessionID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"request_type": reqType.String(),
		"session":      sess,
	})
}

// HandleCCA feeds a decoded Credit-Control-Answer into the tracker
// POST /api/v1/diameter/cca
func (h *DiameterHandler) HandleCCA(c *gin.Context) {
	var req struct {
		SessionID    string `json:"session_id" binding:"required"`
		ResultCode   uint32 `json:"result_code" binding:"required"`
		Experimental bool   `json:"experimental"`
		VendorID     uint32 `json:"vendor_id"`
		Timestamp    int64  `json:"timestamp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rc, tracked := h.charging.HandleCCA(req.SessionID, req.ResultCode,
		req.Experimental, req.VendorID, req.Timestamp)

	c.JSON(http.StatusOK, gin.H{
		"classification": rc,
		"tracked":        tracked,
	})
}

// GetAllSessions returns a snapshot of tracked charging sessions
// GET /api/v1/diameter/sessions
func (h *DiameterHandler) GetAllSessions(c *gin.Context) {
	sessions := h.charging.All()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetStats returns charging tracker statistics
// GET /api/v1/diameter/sessions/stats
func (h *DiameterHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.charging.Stats())
}

// GetSession returns one tracked session by Diameter Session-Id
// GET /api/v1/diameter/session/:sid
func (h *DiameterHandler) GetSession(c *gin.Context) {
	sess, found := h.charging.Get(c.Param("sid"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Charging session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}
