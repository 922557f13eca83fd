package diameter

import (
	"fmt"
	"os"
	"sync"

	"callflow-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Service classifies Diameter result codes for the HTTP layer and the
// charging tracker. Banding itself is pure arithmetic in the models package;
// the service adds operator-supplied description overrides for vendor codes
// that the built-in tables do not know.
type Service struct {
	logger *zap.Logger

	mu sync.RWMutex
	// vendor id -> code -> description
	overrides map[uint32]map[uint32]string
}

// VendorCodeConfig is one vendor's result code description table in the
// overrides file.
type VendorCodeConfig struct {
	VendorID uint32            `yaml:"vendor_id"`
	Codes    map[uint32]string `yaml:"codes"`
}

// OverridesConfig is the top-level structure of a vendor overrides file.
type OverridesConfig struct {
	Vendors []VendorCodeConfig `yaml:"vendors"`
}

// New creates a classification service with no overrides loaded.
func New(logger *zap.Logger) *Service {
	return &Service{
		logger:    logger,
		overrides: make(map[uint32]map[uint32]string),
	}
}

// Classify classifies a standard Result-Code AVP value.
func (s *Service) Classify(code uint32) models.ResultCode {
	return models.ParseResultCode(code)
}

// ClassifyExperimental classifies an Experimental-Result AVP. Overrides only
// replace the description; the severity band always comes from the numeric
// value. An unknown vendor id is not an error.
func (s *Service) ClassifyExperimental(vendorID, code uint32) models.ResultCode {
	rc := models.ParseExperimentalResultCode(vendorID, code)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if codes, ok := s.overrides[vendorID]; ok {
		if desc, ok := codes[code]; ok {
			rc.Description = desc
		}
	}
	return rc
}

// LoadVendorOverrides loads vendor result code descriptions from a YAML
// file, replacing any previously loaded set.
func (s *Service) LoadVendorOverrides(filename string) error {
	s.logger.Info("Loading vendor result code overrides", zap.String("file", filename))

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var config OverridesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}

	overrides := make(map[uint32]map[uint32]string, len(config.Vendors))
	total := 0
	for _, vendor := range config.Vendors {
		if len(vendor.Codes) == 0 {
			continue
		}
		codes := make(map[uint32]string, len(vendor.Codes))
		for code, desc := range vendor.Codes {
			codes[code] = desc
		}
		overrides[vendor.VendorID] = codes
		total += len(codes)
	}

	s.mu.Lock()
	s.overrides = overrides
	s.mu.Unlock()

	s.logger.Info("Vendor result code overrides loaded",
		zap.Int("vendors", len(overrides)),
		zap.Int("codes", total))
	return nil
}
