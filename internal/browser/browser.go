package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/arbitrage-scanner/internal/fetch"
)

// ErrTimeout is returned when a page operation exceeds its deadline.
var ErrTimeout = errors.New("browser operation timed out")

var (
	viewportWidths  = []int{1280, 1366, 1440, 1600}
	viewportHeights = []int{720, 800, 900, 1080}
)

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgents     []string
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgents:     fetch.DefaultUserAgents(),
		AcceptLanguage: "en-GB,en;q=0.9",
		TimezoneID:     "Europe/London",
		Locale:         "en-GB",
	}
}

// Identity is the randomized client fingerprint a browser context is
// created with.
type Identity struct {
	UserAgent string
	Width     int
	Height    int
}

// RandomIdentity picks a user agent and viewport for a new context.
func RandomIdentity(rng *rand.Rand, userAgents []string) Identity {
	if len(userAgents) == 0 {
		userAgents = fetch.DefaultUserAgents()
	}
	return Identity{
		UserAgent: userAgents[rng.Intn(len(userAgents))],
		Width:     viewportWidths[rng.Intn(len(viewportWidths))],
		Height:    viewportHeights[rng.Intn(len(viewportHeights))],
	}
}

// Browser owns one playwright driver, one Chromium instance and a single
// context with a single page.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	identity := RandomIdentity(rand.New(rand.NewSource(time.Now().UnixNano())), opts.UserAgents)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(identity.UserAgent),
		Locale:     playwright.String(opts.Locale),
		TimezoneId: playwright.String(opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  identity.Width,
			Height: identity.Height,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": opts.AcceptLanguage,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	logger = logger.With("component", "browser")
	logger.Info("browser started",
		"headless", opts.Headless,
		"viewport", fmt.Sprintf("%dx%d", identity.Width, identity.Height),
	)

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		logger:  logger,
	}, nil
}

// Page returns the browser's single page.
func (b *Browser) Page() Page {
	return &playwrightPage{page: b.page}
}

func (b *Browser) Close() error {
	var errs []error

	if b.page != nil {
		if err := b.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Launcher starts a Browser on first use. It is safe for concurrent use.
type Launcher struct {
	opts   *Options
	logger *slog.Logger

	mu      sync.Mutex
	browser *Browser
}

func NewLauncher(opts *Options, logger *slog.Logger) *Launcher {
	return &Launcher{opts: opts, logger: logger}
}

// Open returns the single page, launching the browser if needed.
func (l *Launcher) Open() (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser == nil {
		b, err := New(l.opts, l.logger)
		if err != nil {
			return nil, err
		}
		l.browser = b
	}
	return l.browser.Page(), nil
}

// Close shuts the browser down if it was ever started.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	l.browser = nil
	return err
}
