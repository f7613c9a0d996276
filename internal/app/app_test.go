package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/arbitrage-scanner/internal/config"
	"github.com/maltedev/arbitrage-scanner/internal/fetch"
	"github.com/maltedev/arbitrage-scanner/internal/session"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.DelayMin = time.Second
	cfg.Scraper.DelayMax = 2 * time.Second
	cfg.Scraper.SoldDelayMin = 600 * time.Millisecond
	cfg.Scraper.SoldDelayMax = 1400 * time.Millisecond
	cfg.Scraper.MaxRetries = 6
	cfg.Scraper.BackoffBase = 2 * time.Second
	cfg.Scraper.Timeout = 30 * time.Second
	cfg.Scraper.UserAgents = fetch.DefaultUserAgents()
	cfg.Browser.Headless = true
	cfg.Cache.Size = 64
	return cfg
}

func TestBuild_DoesNotLaunchBrowser(t *testing.T) {
	stack, err := Build(testConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, stack.Scraper)
	assert.NotNil(t, stack.Metrics.Registry)
	assert.Equal(t, session.Unauthenticated, stack.Session.State())
	assert.NoError(t, stack.Close())
}
