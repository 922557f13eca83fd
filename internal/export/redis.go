package export

import (
	"context"
	"strconv"
	"sync"
	"time"

	"callflow-go/internal/services/charging"
	"callflow-go/internal/services/tunnel"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	tunnelStatsKey   = "callflow:stats:tunnels"
	chargingStatsKey = "callflow:stats:charging"
)

// Publisher periodically writes tunnel index and charging tracker
// statistics to Redis hashes for external monitoring pickup.
type Publisher struct {
	redis    *redis.Client
	tunnels  *tunnel.Service
	charging *charging.Service
	logger   *zap.Logger
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a statistics publisher. Interval zero defaults to 30 seconds.
func New(redisClient *redis.Client, tunnels *tunnel.Service, chargingService *charging.Service,
	logger *zap.Logger, interval time.Duration) *Publisher {

	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Publisher{
		redis:    redisClient,
		tunnels:  tunnels,
		charging: chargingService,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the publish loop.
func (p *Publisher) Start() {
	p.logger.Info("Starting statistics publisher", zap.Duration("interval", p.interval))

	p.wg.Add(1)
	go p.run()
}

// Stop terminates the publish loop and waits for the final publish to finish.
func (p *Publisher) Stop() {
	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("Statistics publisher stopped")
}

func (p *Publisher) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.publish()
		case <-p.stopChan:
			return
		}
	}
}

func (p *Publisher) publish() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := p.tunnels.Stats()
	tunnelFields := map[string]interface{}{
		"active_tunnels":        stats.ActiveTunnels,
		"total_tunnels_created": stats.TotalCreated,
		"total_tunnels_deleted": stats.TotalDeleted,
		"total_lookups":         stats.TotalLookups,
		"total_lookup_hits":     stats.TotalHits,
		"lookup_hit_rate":       strconv.FormatFloat(stats.HitRate, 'f', 4, 64),
		"updated_at":            time.Now().Unix(),
	}

	if err := p.redis.HSet(ctx, tunnelStatsKey, tunnelFields).Err(); err != nil {
		p.logger.Error("Failed to publish tunnel statistics", zap.Error(err))
		return
	}

	if err := p.redis.HSet(ctx, chargingStatsKey, p.charging.Stats()).Err(); err != nil {
		p.logger.Error("Failed to publish charging statistics", zap.Error(err))
		return
	}

	p.logger.Debug("Published statistics",
		zap.Int("active_tunnels", stats.ActiveTunnels),
		zap.Uint64("total_lookups", stats.TotalLookups))
}
