package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"callflow-go/internal/database"
	"callflow-go/internal/export"
	"callflow-go/internal/handlers"
	"callflow-go/internal/services/charging"
	"callflow-go/internal/services/diameter"
	"callflow-go/internal/services/tunnel"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Enabled            bool   `yaml:"enabled"`
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Name               string `yaml:"name"`
		User               string `yaml:"user"`
		Password           string `yaml:"password"`
		SSLMode            string `yaml:"sslmode"`
		MaxConnections     int    `yaml:"max_connections"`
		MaxIdleConnections int    `yaml:"max_idle_connections"`
	} `yaml:"database"`

	Redis struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		MaxRetries int    `yaml:"max_retries"`
		PoolSize   int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Export struct {
		Enabled  bool `yaml:"enabled"`
		Interval int  `yaml:"interval"` // seconds
	} `yaml:"export"`

	Diameter struct {
		VendorOverridesFile string `yaml:"vendor_overrides_file"`
	} `yaml:"diameter"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

func main() {
	// Load configuration
	cfg, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger, err := setupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Callflow correlation service")

	// Initialize history archive
	var db *database.PostgreSQL
	if cfg.Database.Enabled {
		db, err = database.NewPostgreSQL(database.Config{
			Host:               cfg.Database.Host,
			Port:               cfg.Database.Port,
			Name:               cfg.Database.Name,
			User:               cfg.Database.User,
			Password:           cfg.Database.Password,
			SSLMode:            cfg.Database.SSLMode,
			MaxConnections:     cfg.Database.MaxConnections,
			MaxIdleConnections: cfg.Database.MaxIdleConnections,
		})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("History archive connected")
	}

	// Initialize services
	tunnelIndex := tunnel.New(logger)
	logger.Info("Tunnel index started")

	classifier := diameter.New(logger)
	if cfg.Diameter.VendorOverridesFile != "" {
		if err := classifier.LoadVendorOverrides(cfg.Diameter.VendorOverridesFile); err != nil {
			logger.Error("Failed to load vendor overrides", zap.Error(err))
		}
	}

	chargingService := charging.New(tunnelIndex, classifier, logger)
	logger.Info("Charging tracker started")

	// Statistics export
	var publisher *export.Publisher
	if cfg.Export.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:       fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		})
		defer redisClient.Close()

		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}

		publisher = export.New(redisClient, tunnelIndex, chargingService, logger,
			time.Duration(cfg.Export.Interval)*time.Second)
		publisher.Start()
	}

	// Setup HTTP routes
	router := setupRouter(tunnelIndex, classifier, chargingService, db, logger)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")

	if publisher != nil {
		publisher.Stop()
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func loadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	err = decoder.Decode(&cfg)
	return &cfg, err
}

func setupLogging(cfg struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}) (*zap.Logger, error) {
	level := zap.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zap.DebugLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	if cfg.Format == "json" {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return config.Build()
}

func setupRouter(tunnelIndex *tunnel.Service, classifier *diameter.Service,
	chargingService *charging.Service, db *database.PostgreSQL, logger *zap.Logger) *gin.Engine {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"tunnels":   tunnelIndex.Count(),
			"timestamp": time.Now().Unix(),
		})
	})

	handlers.NewTunnelHandler(tunnelIndex, db, logger).RegisterRoutes(router)
	handlers.NewUserPlaneHandler(tunnelIndex, logger).RegisterRoutes(router)
	handlers.NewDiameterHandler(classifier, chargingService, db, logger).RegisterRoutes(router)

	return router
}
