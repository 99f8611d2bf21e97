package auth

// State is the calendar authorization state. The concrete types are the only
// variants; a token without a client id cannot be expressed.
type State interface {
	// Name is the lowercase state name exposed over HTTP and MCP.
	Name() string
	state()
}

// Unconfigured: no client id has been supplied yet.
type Unconfigured struct{}

// Configured: a client id is known but no consent has been requested.
type Configured struct {
	ClientID string
}

// Authorizing: consent was requested and the callback has not arrived.
// The operator may abandon it, so it has no timeout.
type Authorizing struct {
	ClientID string
}

// Authorized: a bearer token is held.
type Authorized struct {
	ClientID string
	Token    string
}

// Expired: the remote service rejected the token.
type Expired struct {
	ClientID string
}

func (Unconfigured) Name() string { return "unconfigured" }
func (Configured) Name() string   { return "configured" }
func (Authorizing) Name() string  { return "authorizing" }
func (Authorized) Name() string   { return "authorized" }
func (Expired) Name() string      { return "expired" }

func (Unconfigured) state() {}
func (Configured) state()   {}
func (Authorizing) state()  {}
func (Authorized) state()   {}
func (Expired) state()      {}

// clientIDOf returns the client id carried by s, if any.
func clientIDOf(s State) string {
	switch v := s.(type) {
	case Configured:
		return v.ClientID
	case Authorizing:
		return v.ClientID
	case Authorized:
		return v.ClientID
	case Expired:
		return v.ClientID
	}
	return ""
}
