package handlers

import (
	"net/http"
	"time"

	"callflow-go/internal/services/tunnel"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserPlaneHandler is the GTP-U feed: the user-plane decoder reports the
// TEID it pulled from each packet header and gets back the subscriber
// identity, while the tunnel's last-activity timestamp is refreshed.
type UserPlaneHandler struct {
	index  *tunnel.Service
	logger *zap.Logger
}

func NewUserPlaneHandler(index *tunnel.Service, logger *zap.Logger) *UserPlaneHandler {
	return &UserPlaneHandler{
		index:  index,
		logger: logger,
	}
}

// RegisterRoutes registers user-plane feed routes
func (h *UserPlaneHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	v1.POST("/userplane/activity", h.ReportActivity)
}

// ReportActivity resolves a GTP-U TEID and touches the tunnel.
// An unmatched TEID is a normal outcome (tunnel torn down, or setup not yet
// seen), reported as matched=false rather than an error.
// POST /api/v1/userplane/activity
func (h *UserPlaneHandler) ReportActivity(c *gin.Context) {
	var req struct {
		TEID      uint32 `json:"teid" binding:"required"`
		Timestamp int64  `json:"timestamp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	if !h.index.TouchActivity(req.TEID, ts) {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}

	rec, _ := h.index.FindByTEID(req.TEID)
	c.JSON(http.StatusOK, gin.H{
		"matched": true,
		"imsi":    rec.IMSI,
		"ue_ip":   rec.UEIP,
		"apn":     rec.APN,
	})
}
