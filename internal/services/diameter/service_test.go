package diameter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callflow-go/internal/models"
)

func TestClassify(t *testing.T) {
	s := New(zap.NewNop())

	rc := s.Classify(2001)
	assert.True(t, rc.IsSuccess)
	assert.Equal(t, "DIAMETER_SUCCESS", rc.Description)

	rc = s.Classify(5003)
	assert.True(t, rc.IsPermanent)
	assert.Equal(t, "DIAMETER_AUTHORIZATION_REJECTED", rc.Description)
}

func TestClassifyExperimentalWithoutOverrides(t *testing.T) {
	s := New(zap.NewNop())

	rc := s.ClassifyExperimental(models.Vendor3GPP, 5001)
	assert.True(t, rc.IsPermanent)
	assert.Equal(t, "3GPP_DIAMETER_ERROR_USER_UNKNOWN", rc.Description)
}

func TestLoadVendorOverrides(t *testing.T) {
	s := New(zap.NewNop())

	file := filepath.Join(t.TempDir(), "overrides.yaml")
	content := `vendors:
  - vendor_id: 10415
    codes:
      5450: "3GPP_DIAMETER_ERROR_NO_AVAILABLE_POLICY_COUNTERS"
      4099: "VENDOR_QUOTA_HOLD"
  - vendor_id: 9
    codes:
      5999: "CISCO_PRIVATE_REJECT"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	require.NoError(t, s.LoadVendorOverrides(file))

	// Override replaces the description but never the severity band
	rc := s.ClassifyExperimental(models.Vendor3GPP, 4099)
	assert.Equal(t, "VENDOR_QUOTA_HOLD", rc.Description)
	assert.True(t, rc.IsTransient)
	assert.False(t, rc.IsPermanent)

	rc = s.ClassifyExperimental(9, 5999)
	assert.Equal(t, "CISCO_PRIVATE_REJECT", rc.Description)
	assert.True(t, rc.IsPermanent)

	// Codes outside the override set keep built-in behavior
	rc = s.ClassifyExperimental(models.Vendor3GPP, 5001)
	assert.Equal(t, "3GPP_DIAMETER_ERROR_USER_UNKNOWN", rc.Description)
}

func TestLoadVendorOverridesReplacesPreviousSet(t *testing.T) {
	s := New(zap.NewNop())
	dir := t.TempDir()

	first := filepath.Join(dir, "first.yaml")
	require.NoError(t, os.WriteFile(first, []byte(`vendors:
  - vendor_id: 10415
    codes:
      4099: "OLD_NAME"
`), 0644))
	require.NoError(t, s.LoadVendorOverrides(first))

	second := filepath.Join(dir, "second.yaml")
	require.NoError(t, os.WriteFile(second, []byte(`vendors:
  - vendor_id: 10415
    codes:
      5555: "NEW_NAME"
`), 0644))
	require.NoError(t, s.LoadVendorOverrides(second))

	rc := s.ClassifyExperimental(models.Vendor3GPP, 4099)
	assert.NotEqual(t, "OLD_NAME", rc.Description)

	rc = s.ClassifyExperimental(models.Vendor3GPP, 5555)
	assert.Equal(t, "NEW_NAME", rc.Description)
}

func TestLoadVendorOverridesErrors(t *testing.T) {
	s := New(zap.NewNop())

	assert.Error(t, s.LoadVendorOverrides("/nonexistent/overrides.yaml"))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("vendors: {not: [a, list"), 0644))
	assert.Error(t, s.LoadVendorOverrides(bad))
}
