package adapter

// CredentialChecker validates a username and password. Both the command and
// the web handlers authenticate through it; session.Authenticator is the
// production implementation.
//
// Implementations must be safe for concurrent use.
type CredentialChecker interface {
	Authenticate(username, password string) bool
}

// CredentialFunc adapts a plain function to CredentialChecker.
type CredentialFunc func(username, password string) bool

// Authenticate calls f.
func (f CredentialFunc) Authenticate(username, password string) bool {
	return f(username, password)
}
