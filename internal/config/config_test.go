package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storemirror/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  path: /tmp/mirror.db
remote:
  base_url: https://shop.example.com
  email: sync@example.com
  password: hunter2
api:
  operator_token: op-secret
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: storemirror
  environment: production
database:
  path: /var/lib/storemirror/mirror.db
remote:
  base_url: https://shop.example.com
  email: sync@example.com
  password: hunter2
  page_size: 100
sync:
  daily_threshold: "18.30"
  pages_per_task: 3
  follow_up_delay: 5s
  stale_processing: 30m
api:
  port: 9000
  operator_token: op-secret
  scheduler_token: sched-secret
  rate_limit:
    rps: 2.5
    burst: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "storemirror", cfg.App.Name)
	assert.Equal(t, 100, cfg.Remote.PageSize)
	assert.Equal(t, "18.30", cfg.Sync.DailyThreshold)
	assert.Equal(t, 3, cfg.Sync.PagesPerTask)
	assert.Equal(t, 5*time.Second, cfg.Sync.FollowUpDelay)
	assert.Equal(t, 30*time.Minute, cfg.Sync.StaleProcessing)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 2.5, cfg.API.RateLimit.RPS)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, models.DefaultPageSize, cfg.Remote.PageSize)
	assert.Equal(t, models.PagesPerTask, cfg.Sync.PagesPerTask)
	assert.Equal(t, "21:00", cfg.Sync.DailyThreshold)
	assert.Equal(t, models.DefaultFollowUpDelay, cfg.Sync.FollowUpDelay)
	assert.Equal(t, models.DefaultStaleProcessing, cfg.Sync.StaleProcessing)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("MIRROR_REMOTE_PASSWORD", "from-env")

	cfg, err := Load(writeConfig(t, `
database:
  path: /tmp/mirror.db
remote:
  base_url: https://shop.example.com
  email: sync@example.com
  password: ${MIRROR_REMOTE_PASSWORD}
api:
  scheduler_token: sched-secret
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Remote.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"missing base url", func(c *Config) { c.Remote.BaseURL = "" }},
		{"missing credentials", func(c *Config) { c.Remote.Password = "" }},
		{"no bearer tokens", func(c *Config) { c.API.OperatorToken = ""; c.API.SchedulerToken = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
