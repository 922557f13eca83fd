package handlers

import (
	"net/http"
	"strconv"

	"callflow-go/internal/database"
	"callflow-go/internal/models"
	"callflow-go/internal/services/tunnel"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TunnelHandler exposes the tunnel index over HTTP: lifecycle calls from
// the control-plane decoder and the query surface used by the correlator.
type TunnelHandler struct {
	index  *tunnel.Service
	db     *database.PostgreSQL
	logger *zap.Logger
}

// NewTunnelHandler creates a tunnel handler. db may be nil when no archive
// is configured.
func NewTunnelHandler(index *tunnel.Service, db *database.PostgreSQL, logger *zap.Logger) *TunnelHandler {
	return &TunnelHandler{
		index:  index,
		db:     db,
		logger: logger,
	}
}

// RegisterRoutes registers all tunnel index routes
func (h *TunnelHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Lifecycle (control-plane decoder)
	v1.POST("/tunnels", h.RegisterTunnel)
	v1.PUT("/tunnels/:teid", h.UpdateTunnel)
	v1.DELETE("/tunnels/:teid", h.DeleteTunnel)
	v1.POST("/tunnels/clear", h.ClearTunnels)

	// Queries (correlator)
	v1.GET("/tunnels", h.GetAllTunnels)
	v1.GET("/tunnels/stats", h.GetStats)
	v1.GET("/tunnel/teid/:teid", h.GetByTEID)
	v1.GET("/tunnel/imsi/:imsi", h.GetByIMSI)
	v1.GET("/tunnel/ueip/:ip", h.GetByUEIP)
	v1.GET("/tunnel/session/:sid", h.GetBySessionID)
	v1.GET("/tunnel/history/:imsi", h.GetHistory)
}

// RegisterTunnel files a new tunnel record
// POST /api/v1/tunnels
func (h *TunnelHandler) RegisterTunnel(c *gin.Context) {
	var rec models.TunnelRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if rec.PrimaryKey() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tunnel has no usable TEID"})
		return
	}

	h.index.Register(rec)

	c.JSON(http.StatusOK, gin.H{
		"tunnel_id": rec.TunnelID(),
		"message":   "Tunnel registered",
	})
}

// UpdateTunnel replaces the record stored under a TEID
// PUT /api/v1/tunnels/:teid
func (h *TunnelHandler) UpdateTunnel(c *gin.Context) {
	teid, ok := parseTEID(c)
	if !ok {
		return
	}

	var rec models.TunnelRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.index.Update(teid, rec) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tunnel updated"})
}

// DeleteTunnel removes a tunnel and archives it when a database is configured
// DELETE /api/v1/tunnels/:teid
func (h *TunnelHandler) DeleteTunnel(c *gin.Context) {
	teid, ok := parseTEID(c)
	if !ok {
		return
	}

	rec, found := h.index.RemoveRecord(teid)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}

	if h.db != nil {
		if err := h.db.SaveTunnelHistory(rec, "deleted"); err != nil {
			h.logger.Error("Failed to archive tunnel",
				zap.String("tunnel_id", rec.TunnelID()),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tunnel deleted"})
}

// ClearTunnels empties the index, keeping lifetime counters
// POST /api/v1/tunnels/clear
func (h *TunnelHandler) ClearTunnels(c *gin.Context) {
	h.index.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "All tunnels cleared"})
}

// GetAllTunnels returns a snapshot of the index
// GET /api/v1/tunnels
func (h *TunnelHandler) GetAllTunnels(c *gin.Context) {
	records := h.index.All()
	c.JSON(http.StatusOK, gin.H{
		"tunnels": records,
		"count":   len(records),
	})
}

// GetStats returns the lifetime index counters
// GET /api/v1/tunnels/stats
func (h *TunnelHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.index.Stats())
}

// GetByTEID looks up a tunnel by its primary TEID
// GET /api/v1/tunnel/teid/:teid
func (h *TunnelHandler) GetByTEID(c *gin.Context) {
	teid, ok := parseTEID(c)
	if !ok {
		return
	}

	rec, found := h.index.FindByTEID(teid)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetByIMSI looks up the tunnel of a subscriber
// GET /api/v1/tunnel/imsi/:imsi
func (h *TunnelHandler) GetByIMSI(c *gin.Context) {
	rec, found := h.index.FindByIMSI(c.Param("imsi"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetByUEIP looks up the tunnel holding a UE address
// GET /api/v1/tunnel/ueip/:ip
func (h *TunnelHandler) GetByUEIP(c *gin.Context) {
	rec, found := h.index.FindByUEIP(c.Param("ip"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetBySessionID looks up a tunnel by control-plane session id
// GET /api/v1/tunnel/session/:sid
func (h *TunnelHandler) GetBySessionID(c *gin.Context) {
	rec, found := h.index.FindBySessionID(c.Param("sid"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tunnel not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetHistory returns archived tunnels for a subscriber
// GET /api/v1/tunnel/history/:imsi
func (h *TunnelHandler) GetHistory(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History archive not configured"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.db.FetchTunnelHistory(c.Param("imsi"), limit)
	if err != nil {
		h.logger.Error("Failed to fetch tunnel history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": records,
		"count":   len(records),
	})
}

// parseTEID reads the :teid path parameter, accepting decimal or 0x-prefixed
// hex. Writes the error response itself on failure.
func parseTEID(c *gin.Context) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param("teid"), 0, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid TEID"})
		return 0, false
	}
	return uint32(v), true
}
