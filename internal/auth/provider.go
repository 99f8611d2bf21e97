package auth

import "errors"

// ErrProviderUnavailable is returned by Initialize when the consent
// capability is not ready.
var ErrProviderUnavailable = errors.New("authorization provider unavailable")

// Provider is the external identity provider capability.
type Provider interface {
	// Available reports whether consent can be requested right now.
	Available() bool
	// Initialize prepares a client for clientID. onToken is invoked once
	// per completed consent with the issued access token.
	Initialize(clientID string, onToken func(token string)) (TokenClient, error)
}

// TokenClient requests operator consent.
type TokenClient interface {
	// RequestAccessToken starts the consent flow and returns without
	// waiting for it.
	RequestAccessToken() error
}
