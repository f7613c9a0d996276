package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/maltedev/arbitrage-scanner/internal/browser"
	"github.com/maltedev/arbitrage-scanner/internal/fetch"
	"github.com/maltedev/arbitrage-scanner/internal/parser"
	"github.com/maltedev/arbitrage-scanner/internal/ratelimit"
)

var (
	ErrMissingCredentials      = errors.New("AMAZON_EMAIL and AMAZON_PASSWORD must be set for Amazon access")
	ErrChallengeRequiresSecret = errors.New("amazon requested a one-time code but AMAZON_TOTP_SECRET is not set")
	ErrLoginTimeout            = errors.New("sign-in form did not appear in time")
	ErrLoginUnverified         = errors.New("sign-in could not be verified")
)

const (
	signInPath = "/ap/signin"

	emailInput     = "input#ap_email"
	continueButton = "input#continue"
	passwordInput  = "input#ap_password"
	signInButton   = "input#signInSubmit"
	otpInput       = "input#auth-mfa-otpcode"
	otpSubmit      = "input#auth-signin-button"
	accountLink    = "#nav-link-accountList"
)

// State is the login state of a Manager.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	AwaitingChallenge
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case AwaitingChallenge:
		return "awaiting_challenge"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthError reports a failed login and the step it failed at.
type AuthError struct {
	Stage string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("amazon login failed at %s: %v", e.Stage, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err carries an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

type Credentials struct {
	Email      string
	Password   string
	TOTPSecret string
}

func (c Credentials) complete() bool {
	return c.Email != "" && c.Password != ""
}

// Opener hands out the browser page used for the session.
type Opener interface {
	Open() (browser.Page, error)
}

type Options struct {
	Credentials Credentials
	BaseURL     string
	// Verify fails the login unless the home page shows a signed-in account.
	Verify          bool
	SignInTimeout   time.Duration
	PasswordTimeout time.Duration
	ChallengeWait   time.Duration
	PageTimeout     time.Duration
	SettleMin       time.Duration
	SettleMax       time.Duration
	Sleep           ratelimit.SleepFunc
	Now             func() time.Time
}

func DefaultOptions() Options {
	return Options{
		BaseURL:         parser.AmazonBaseURL,
		SignInTimeout:   60 * time.Second,
		PasswordTimeout: 20 * time.Second,
		ChallengeWait:   25 * time.Second,
		PageTimeout:     60 * time.Second,
		SettleMin:       700 * time.Millisecond,
		SettleMax:       1100 * time.Millisecond,
		Sleep:           ratelimit.Sleep,
		Now:             time.Now,
	}
}

// Manager keeps one logged-in Amazon browser session and fetches pages
// through it. All page access is serialized.
type Manager struct {
	opts   Options
	opener Opener
	logger *slog.Logger

	mu    sync.Mutex
	state State
	page  browser.Page
	rng   *rand.Rand
}

func NewManager(opts Options, opener Opener, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = defaults.BaseURL
	}
	if opts.Sleep == nil {
		opts.Sleep = defaults.Sleep
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	return &Manager{
		opts:   opts,
		opener: opener,
		logger: logger.With("component", "amazon_session"),
		state:  Unauthenticated,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureAuthenticated logs in unless the session already is.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx)
}

// Fetch loads url in the authenticated page and returns its HTML.
func (m *Manager) Fetch(ctx context.Context, url string) (*fetch.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(ctx); err != nil {
		return nil, err
	}

	if err := m.page.Goto(url, m.opts.PageTimeout); err != nil {
		return nil, &fetch.FetchError{URL: url, Attempts: 1, Err: err}
	}
	if err := m.opts.Sleep(ctx, m.settleDelay()); err != nil {
		return nil, err
	}

	html, err := m.page.Content()
	if err != nil {
		return nil, &fetch.FetchError{URL: url, Attempts: 1, Err: err}
	}

	html, _, err = browser.DismissInterstitial(m.page, html, m.logger)
	if err != nil {
		return nil, &fetch.FetchError{URL: url, Attempts: 1, Err: err}
	}

	return &fetch.Document{URL: url, StatusCode: 200, HTML: html}, nil
}

func (m *Manager) settleDelay() time.Duration {
	spread := m.opts.SettleMax - m.opts.SettleMin
	if spread <= 0 {
		return m.opts.SettleMin
	}
	return m.opts.SettleMin + time.Duration(m.rng.Int63n(int64(spread)+1))
}

func (m *Manager) ensureLocked(ctx context.Context) error {
	if m.state == Authenticated {
		return nil
	}
	if !m.opts.Credentials.complete() {
		return &AuthError{Stage: "credentials", Err: ErrMissingCredentials}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.page == nil {
		page, err := m.opener.Open()
		if err != nil {
			return &AuthError{Stage: "browser", Err: err}
		}
		m.page = page
	}

	m.state = Authenticating
	m.logger.Info("signing in to amazon")

	if err := m.login(ctx); err != nil {
		m.state = Unauthenticated
		m.logger.Error("amazon sign-in failed", "error", err)
		return err
	}

	m.state = Authenticated
	m.logger.Info("amazon session authenticated")
	return nil
}

func (m *Manager) login(ctx context.Context) error {
	creds := m.opts.Credentials
	page := m.page

	if err := page.Goto(m.opts.BaseURL+signInPath, m.opts.SignInTimeout); err != nil {
		return &AuthError{Stage: "signin", Err: err}
	}
	if err := page.Fill(emailInput, creds.Email); err != nil {
		return &AuthError{Stage: "email", Err: err}
	}
	if err := page.Click(continueButton); err != nil {
		return &AuthError{Stage: "email", Err: err}
	}

	if err := page.WaitForSelector(passwordInput, m.opts.PasswordTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return &AuthError{Stage: "password", Err: ErrLoginTimeout}
		}
		return &AuthError{Stage: "password", Err: err}
	}
	if err := page.Fill(passwordInput, creds.Password); err != nil {
		return &AuthError{Stage: "password", Err: err}
	}
	if err := page.Click(signInButton); err != nil {
		return &AuthError{Stage: "password", Err: err}
	}

	if err := m.answerChallenge(ctx); err != nil {
		return err
	}

	if err := page.Goto(m.opts.BaseURL, m.opts.PageTimeout); err != nil {
		return &AuthError{Stage: "home", Err: err}
	}

	if m.opts.Verify {
		return m.verify()
	}
	return nil
}

// answerChallenge fills the one-time code form when Amazon shows it. A
// missing form means no challenge was issued.
func (m *Manager) answerChallenge(ctx context.Context) error {
	count, err := m.page.Count(otpInput)
	if err != nil {
		m.logger.Warn("could not check for a one-time code form, assuming none", "error", err)
		return nil
	}
	if count == 0 {
		return nil
	}

	m.state = AwaitingChallenge
	m.logger.Info("amazon requested a one-time code")

	secret := m.opts.Credentials.TOTPSecret
	if secret == "" {
		return &AuthError{Stage: "challenge", Err: ErrChallengeRequiresSecret}
	}

	code, err := totp.GenerateCode(secret, m.opts.Now())
	if err != nil {
		return &AuthError{Stage: "challenge", Err: fmt.Errorf("generate code: %w", err)}
	}
	if err := m.page.Fill(otpInput, code); err != nil {
		return &AuthError{Stage: "challenge", Err: err}
	}
	if err := m.page.Click(otpSubmit); err != nil {
		return &AuthError{Stage: "challenge", Err: err}
	}
	if err := m.page.WaitForLoad(m.opts.ChallengeWait); err != nil {
		m.logger.Warn("page did not settle after one-time code", "error", err)
	}

	m.state = Authenticating
	return m.opts.Sleep(ctx, 800*time.Millisecond)
}

func (m *Manager) verify() error {
	text, err := m.page.Text(accountLink)
	if err != nil {
		return &AuthError{Stage: "verify", Err: fmt.Errorf("%w: %v", ErrLoginUnverified, err)}
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || strings.Contains(text, "sign in") {
		return &AuthError{Stage: "verify", Err: ErrLoginUnverified}
	}
	return nil
}
