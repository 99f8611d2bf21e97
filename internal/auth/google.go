package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// ErrStateMismatch is returned when a consent callback carries an unknown
// or already used state.
var ErrStateMismatch = errors.New("oauth state mismatch")

// URLOpener presents a consent URL to the operator.
type URLOpener func(url string) error

// GoogleProvider runs the Google consent flow with a loopback redirect to
// the DriveFlow HTTP server.
type GoogleProvider struct {
	clientSecret string
	redirectURL  string
	endpoint     oauth2.Endpoint
	open         URLOpener

	mu      sync.Mutex
	ready   bool
	pending map[string]*googleClient // state → client awaiting its callback
}

// NewGoogleProvider creates a provider that redirects to redirectURL.
// It reports unavailable until SetReady(true) is called by the server.
func NewGoogleProvider(clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		endpoint:     google.Endpoint,
		open:         OpenBrowser,
		pending:      make(map[string]*googleClient),
	}
}

// SetEndpoint overrides the Google OAuth endpoint.
func (p *GoogleProvider) SetEndpoint(e oauth2.Endpoint) {
	p.endpoint = e
}

// SetURLOpener replaces how consent URLs are presented.
func (p *GoogleProvider) SetURLOpener(fn URLOpener) {
	p.open = fn
}

// SetReady marks whether the callback route is being served.
func (p *GoogleProvider) SetReady(ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
}

func (p *GoogleProvider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *GoogleProvider) Initialize(clientID string, onToken func(string)) (TokenClient, error) {
	if clientID == "" {
		return nil, ErrInvalidClientID
	}
	if !p.Available() {
		return nil, ErrProviderUnavailable
	}
	return &googleClient{
		provider: p,
		onToken:  onToken,
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: p.clientSecret,
			RedirectURL:  p.redirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     p.endpoint,
		},
	}, nil
}

// HandleCallback completes a consent flow.
// GET /oauth/callback?state=...&code=...
func (p *GoogleProvider) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	p.mu.Lock()
	client, ok := p.pending[state]
	delete(p.pending, state)
	p.mu.Unlock()

	if state == "" || !ok {
		slog.Warn("consent callback rejected", "error", ErrStateMismatch)
		http.Error(w, ErrStateMismatch.Error(), http.StatusBadRequest)
		return
	}

	if e := q.Get("error"); e != "" {
		slog.Warn("consent denied", "reason", e)
		http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "no authorization code received", http.StatusBadRequest)
		return
	}

	tok, err := client.cfg.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("authorization code exchange failed", "error", err)
		http.Error(w, "failed to exchange authorization code", http.StatusBadGateway)
		return
	}

	client.onToken(tok.AccessToken)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "Google Calendar connected. You can close this window.")
}

type googleClient struct {
	provider *GoogleProvider
	cfg      *oauth2.Config
	onToken  func(string)
}

func (c *googleClient) RequestAccessToken() error {
	state := uuid.NewString()

	// Only the latest consent is honored; earlier ones were abandoned.
	c.provider.mu.Lock()
	clear(c.provider.pending)
	c.provider.pending[state] = c
	c.provider.mu.Unlock()

	authURL := c.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	if err := c.provider.open(authURL); err != nil {
		c.provider.mu.Lock()
		delete(c.provider.pending, state)
		c.provider.mu.Unlock()
		return fmt.Errorf("opening consent page: %w", err)
	}
	return nil
}

// OpenBrowser logs url and tries to open it in the desktop browser.
func OpenBrowser(url string) error {
	slog.Info("open this URL to connect Google Calendar", "url", url)

	name, args := browserCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		slog.Debug("could not launch browser", "error", err)
		return nil
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// browserCommand returns the launcher for goos. The url is passed as a
// single argument and never through a shell.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
