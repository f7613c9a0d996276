package app

import (
	"fmt"
	"log/slog"

	"github.com/maltedev/arbitrage-scanner/internal/browser"
	"github.com/maltedev/arbitrage-scanner/internal/config"
	"github.com/maltedev/arbitrage-scanner/internal/fetch"
	"github.com/maltedev/arbitrage-scanner/internal/gateway"
	"github.com/maltedev/arbitrage-scanner/internal/ratelimit"
	"github.com/maltedev/arbitrage-scanner/internal/scraper"
	"github.com/maltedev/arbitrage-scanner/internal/session"
)

// Stack is the retrieval and analysis pipeline of one process. The browser
// is only launched when the first Amazon page is requested.
type Stack struct {
	Metrics  *fetch.Metrics
	Engine   *fetch.Engine
	Launcher *browser.Launcher
	Session  *session.Manager
	Gateway  *gateway.Gateway
	Scraper  *scraper.Scraper
}

func Build(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metrics := fetch.NewMetrics()

	policy := fetch.DefaultPolicy()
	policy.MaxAttempts = cfg.Scraper.MaxRetries
	policy.BackoffBase = cfg.Scraper.BackoffBase

	engine := fetch.New(fetch.Options{
		Timeout:    cfg.Scraper.Timeout,
		UserAgents: cfg.Scraper.UserAgents,
		Policy:     policy,
		Metrics:    metrics,
	}, logger)

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ProxyServer = cfg.Browser.ProxyServer
	browserOpts.UserAgents = cfg.Scraper.UserAgents
	launcher := browser.NewLauncher(browserOpts, logger)

	sessionOpts := session.DefaultOptions()
	sessionOpts.Credentials = session.Credentials{
		Email:      cfg.Amazon.Email,
		Password:   cfg.Amazon.Password,
		TOTPSecret: cfg.Amazon.TOTPSecret,
	}
	sessionOpts.Verify = cfg.Amazon.VerifyLogin
	sess := session.NewManager(sessionOpts, launcher, logger)

	gw := gateway.New(sess, engine, logger)

	scraperOpts := scraper.DefaultOptions()
	scraperOpts.Limiter = ratelimit.NewSimpleRateLimiter(cfg.Scraper.DelayMin, cfg.Scraper.DelayMax)
	scraperOpts.SoldLimiter = ratelimit.NewSimpleRateLimiter(cfg.Scraper.SoldDelayMin, cfg.Scraper.SoldDelayMax)
	scraperOpts.CacheSize = cfg.Cache.Size

	sc, err := scraper.New(gw, scraperOpts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scraper: %w", err)
	}

	return &Stack{
		Metrics:  metrics,
		Engine:   engine,
		Launcher: launcher,
		Session:  sess,
		Gateway:  gw,
		Scraper:  sc,
	}, nil
}

// Close releases the browser, if one was launched.
func (s *Stack) Close() error {
	if s.Launcher == nil {
		return nil
	}
	if err := s.Launcher.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
