package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 45*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 10, cfg.Review.HeaderProbeRows)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Contains(t, cfg.Database.DSN(), "dbname=loadshed_review")
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("DB_ENABLED", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled)
}

func TestValidateConfig(t *testing.T) {
	t.Setenv("SESSION_TOKEN_SECRET", testSecret)
	valid, err := LoadConfig()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Session.TokenSecret = "short" },
			wantErr: []string{"SESSION_TOKEN_SECRET"},
		},
		{
			name: "several problems are reported together",
			mutate: func(c *Config) {
				c.Server.Port = 0
				c.Logging.Output = "syslog"
				c.Review.HeaderProbeRows = 0
			},
			wantErr: []string{"SERVER_PORT", "LOG_OUTPUT", "REVIEW_HEADER_PROBE_ROWS"},
		},
		{
			name:   "database checks skipped when disabled",
			mutate: func(c *Config) { c.Database.Enabled = false; c.Database.Host = "" },
		},
		{
			name:    "database host required when enabled",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: []string{"DB_HOST"},
		},
		{
			name:    "upload limit above body limit",
			mutate:  func(c *Config) { c.Review.MaxUploadBytes = c.Server.BodyLimit + 1 },
			wantErr: []string{"REVIEW_MAX_UPLOAD_BYTES"},
		},
		{
			name:    "file logging without path",
			mutate:  func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" },
			wantErr: []string{"LOG_FILE_PATH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			err := ValidateConfig(&cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOADSHED_TEST_A=from-file\nLOADSHED_TEST_B=\"quoted\"\n"), 0o600))
	t.Setenv("LOADSHED_TEST_A", "from-env")
	t.Setenv("LOADSHED_TEST_B", "")
	os.Unsetenv("LOADSHED_TEST_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("LOADSHED_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("LOADSHED_TEST_B"))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

const rulesYAML = `
zone_aliases:
  P. PINANG: PULAU PINANG
  SABAH TIMUR: EAST
zones:
  perlis utara: North
subzones:
  GM Seremban 2: klang valley
stage_policies:
  uvls:
    critical: [1, 2]
    non_critical: [3, 4, 5, 6]
    non_overlap: [1]
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(rulesYAML))
	require.NoError(t, err)

	m := rules.Mapper()
	assert.Equal(t, models.ZoneNorth, m.ClassifyZone("P. Pinang"))
	assert.Equal(t, models.ZoneNorth, m.ClassifyZone("Perlis-Utara"))
	assert.Equal(t, models.ZoneEast, m.ClassifyZone("sabah timur"))
	assert.Equal(t, models.ZoneKlangValley, m.ClassifySubzone("GM SEREMBAN 2"))
	assert.Equal(t, models.ZoneKlangValley, m.ClassifyZone("WPKL"), "built-in tables stay")

	policies := rules.Policies()
	assert.Equal(t, []int{1, 2}, policies.For(models.SchemeUVLS).Critical)
	assert.Equal(t, simulation.DefaultPolicy(), policies.For(models.SchemeUFLS))
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown zone", yaml: "zones:\n  X: Atlantis\n", want: "unknown zone"},
		{name: "unknown scheme", yaml: "stage_policies:\n  OFLS:\n    critical: [1]\n", want: "unknown scheme"},
		{name: "overlapping sets", yaml: "stage_policies:\n  UFLS:\n    critical: [1, 4]\n    non_critical: [4]\n", want: "both critical and non-critical"},
		{name: "non-positive stage", yaml: "stage_policies:\n  EMLS:\n    non_overlap: [0]\n", want: "must be positive"},
		{name: "malformed", yaml: "zones: [", want: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestLoadRules(t *testing.T) {
	empty, err := LoadRules("")
	require.NoError(t, err)
	assert.Empty(t, empty.Policies())

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))
	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Len(t, rules.StagePolicies, 1)

	_, err = LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
