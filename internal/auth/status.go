// Package auth holds the sign-in state read by the task list store and the
// credential storage behind login and logout.
package auth

// Status reports the sign-in state of the current account. The task list
// store only reads it; signing in and out happen elsewhere.
type Status interface {
	// IsSignedIn reports whether an account is signed in.
	IsSignedIn() bool

	// AccountID returns the signed-in account, or "" when signed out.
	AccountID() string
}

// Session is the Status of one set of stored credentials.
type Session struct {
	creds *Credentials
}

// NewSession returns a session for creds. A nil creds is signed out.
func NewSession(creds *Credentials) *Session {
	return &Session{creds: creds}
}

// SignedOut returns a session with no account.
func SignedOut() *Session {
	return &Session{}
}

// LoadSession reads the credentials stored for backend. Missing credentials
// yield a signed-out session, not an error.
func LoadSession(k *Keyring, backend string) (*Session, error) {
	creds, err := k.Load(backend)
	if err == ErrNoCredentials {
		return SignedOut(), nil
	}
	if err != nil {
		return nil, err
	}
	return NewSession(creds), nil
}

// IsSignedIn implements Status.
func (s *Session) IsSignedIn() bool {
	return s != nil && s.creds != nil && s.creds.AccountID != ""
}

// AccountID implements Status.
func (s *Session) AccountID() string {
	if !s.IsSignedIn() {
		return ""
	}
	return s.creds.AccountID
}

// Credentials returns the stored credentials, or nil when signed out.
func (s *Session) Credentials() *Credentials {
	if s == nil {
		return nil
	}
	return s.creds
}
