package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/btouchard/driveflow/internal/notify"
	"github.com/btouchard/driveflow/internal/store"
)

// ErrInvalidClientID is returned by SetClientID for a blank id.
var ErrInvalidClientID = errors.New("client id must not be empty")

// Options tunes a TokenManager.
type Options struct {
	// RetryDelay is how long Connect waits before its single retry after
	// initializing a client on demand.
	RetryDelay time.Duration
	// FallbackClientID is used when no client id has been persisted.
	FallbackClientID string
}

// TokenManager owns the calendar authorization state and its persistence.
type TokenManager struct {
	mu     sync.Mutex
	state  State
	client TokenClient

	kv         store.Store
	provider   Provider
	notifier   notify.Notifier
	retryDelay time.Duration
	fallbackID string
}

// NewTokenManager creates a manager in the Unconfigured state. Call Load to
// restore persisted state.
func NewTokenManager(kv store.Store, provider Provider, notifier notify.Notifier, opts Options) *TokenManager {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &TokenManager{
		state:      Unconfigured{},
		kv:         kv,
		provider:   provider,
		notifier:   notifier,
		retryDelay: opts.RetryDelay,
		fallbackID: strings.TrimSpace(opts.FallbackClientID),
	}
}

// Load restores the client id and token. A token persisted without a client
// id is discarded.
func (m *TokenManager) Load() error {
	clientID, err := m.get(store.KeyClientID)
	if err != nil {
		return err
	}
	token, err := m.get(store.KeyAccessToken)
	if err != nil {
		return err
	}

	if clientID == "" && m.fallbackID != "" {
		clientID = m.fallbackID
		slog.Info("using configured google client id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case clientID == "":
		if token != "" {
			slog.Warn("discarding access token persisted without a client id")
			if err := m.kv.Delete(store.KeyAccessToken); err != nil {
				return fmt.Errorf("discarding orphan token: %w", err)
			}
		}
		m.state = Unconfigured{}
		return nil
	case token != "":
		m.state = Authorized{ClientID: clientID, Token: token}
	default:
		m.state = Configured{ClientID: clientID}
	}

	m.initClientLocked(clientID)
	slog.Info("calendar authorization restored", "state", m.state.Name())
	return nil
}

// SetClientID persists id and moves to Configured. A token obtained for a
// previous client id is discarded. If the provider is available a client is
// initialized eagerly; failure to do so is only logged.
func (m *TokenManager) SetClientID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidClientID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Put(store.KeyClientID, []byte(id)); err != nil {
		return fmt.Errorf("saving client id: %w", err)
	}
	if _, held := m.state.(Authorized); held {
		if err := m.kv.Delete(store.KeyAccessToken); err != nil {
			slog.Error("failed to clear access token", "error", err)
		}
	}

	m.state = Configured{ClientID: id}
	m.client = nil
	m.initClientLocked(id)

	slog.Info("google client id configured", "client_ready", m.client != nil)
	return nil
}

// Connect requests operator consent. When no client is initialized yet but a
// client id is known and the provider has become available, the client is
// initialized and the request retried once after RetryDelay. Otherwise the
// call only logs a warning. Connect never waits for the consent to finish.
func (m *TokenManager) Connect() error {
	m.mu.Lock()

	if _, ok := m.state.(Authorized); ok {
		m.mu.Unlock()
		slog.Info("connect ignored, calendar already authorized")
		return nil
	}

	if m.client != nil {
		return m.requestConsentLocked()
	}

	clientID := clientIDOf(m.state)
	if clientID == "" || !m.provider.Available() {
		m.mu.Unlock()
		slog.Warn("connect ignored, authorization client not ready",
			"client_id_set", clientID != "",
			"provider_available", m.provider.Available())
		return nil
	}

	m.initClientLocked(clientID)
	m.mu.Unlock()

	time.AfterFunc(m.retryDelay, m.retryConnect)
	return nil
}

func (m *TokenManager) retryConnect() {
	m.mu.Lock()
	if _, ok := m.state.(Authorized); ok {
		m.mu.Unlock()
		slog.Info("connect retry skipped, calendar already authorized")
		return
	}
	if m.client == nil {
		m.mu.Unlock()
		slog.Warn("connect retry abandoned, authorization client not initialized")
		return
	}
	if err := m.requestConsentLocked(); err != nil {
		slog.Warn("connect retry failed", "error", err)
	}
}

// requestConsentLocked moves to Authorizing and asks the client for consent.
// It releases mu before calling out to the client.
func (m *TokenManager) requestConsentLocked() error {
	prev := m.state
	client := m.client
	m.state = Authorizing{ClientID: clientIDOf(prev)}
	m.mu.Unlock()

	if err := client.RequestAccessToken(); err != nil {
		m.mu.Lock()
		if _, still := m.state.(Authorizing); still {
			m.state = prev
		}
		m.mu.Unlock()
		return fmt.Errorf("requesting consent: %w", err)
	}

	slog.Info("calendar consent requested")
	return nil
}

// initClientLocked initializes a client for clientID when the provider is
// available. Errors are logged.
func (m *TokenManager) initClientLocked(clientID string) {
	if !m.provider.Available() {
		return
	}
	client, err := m.provider.Initialize(clientID, m.tokenCallback(clientID))
	if err != nil {
		slog.Warn("authorization client initialization failed", "error", err)
		return
	}
	m.client = client
}

// tokenCallback returns the consent callback bound to clientID. Tokens issued
// for a client id that is no longer current are ignored.
func (m *TokenManager) tokenCallback(clientID string) func(string) {
	return func(token string) {
		if token == "" {
			slog.Warn("consent returned an empty access token")
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if clientIDOf(m.state) != clientID {
			slog.Warn("ignoring access token for a replaced client id")
			return
		}
		if err := m.kv.Put(store.KeyAccessToken, []byte(token)); err != nil {
			slog.Error("failed to save access token", "error", err)
			return
		}
		m.state = Authorized{ClientID: clientID, Token: token}

		slog.Info("calendar authorized")
		m.notify(notify.Event{
			Type:    "auth.connected",
			Level:   notify.LevelInfo,
			Message: "Google Calendar connected",
		})
	}
}

// Invalidate drops token after the remote service rejected it, moves to
// Expired and raises a blocking alert asking the operator to reconnect.
// It has no effect unless token is the one currently held, so a late
// rejection of a replaced token leaves a fresh one alone. Only the first of
// several concurrent calls has an effect.
func (m *TokenManager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	authorized, ok := m.state.(Authorized)
	if !ok {
		return
	}
	if authorized.Token != token {
		slog.Debug("ignoring rejection of a replaced calendar token")
		return
	}

	m.state = Expired{ClientID: authorized.ClientID}
	if err := m.kv.Delete(store.KeyAccessToken); err != nil {
		slog.Error("failed to clear access token", "error", err)
	}

	slog.Warn("calendar token rejected, reconnection required")
	m.notify(notify.Event{
		Type:     "auth.expired",
		Level:    notify.LevelWarning,
		Message:  "Google Calendar session expired. Connect again to resume sync.",
		Blocking: true,
	})
}

// AccessToken returns the bearer token when authorized.
func (m *TokenManager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.state.(Authorized); ok {
		return a.Token, true
	}
	return "", false
}

// IsConnected reports whether a token is held.
func (m *TokenManager) IsConnected() bool {
	_, ok := m.AccessToken()
	return ok
}

// State returns the current state.
func (m *TokenManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ClientID returns the configured client id, if any.
func (m *TokenManager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clientIDOf(m.state)
}

func (m *TokenManager) notify(e notify.Event) {
	if m.notifier != nil {
		m.notifier.Notify(e)
	}
}

func (m *TokenManager) get(key string) (string, error) {
	data, err := m.kv.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}
