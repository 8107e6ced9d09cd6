package httplite

import "strings"

const (
	// SessionCookieName is the cookie that marks a browser as logged in.
	SessionCookieName = "session"

	// SessionCookieValue is the only value accepted as authenticated.
	SessionCookieValue = "authenticated"

	// SetSessionCookie is sent after a successful login.
	SetSessionCookie = "session=authenticated; Path=/; HttpOnly"

	// ClearSessionCookie expires the session cookie on logout.
	ClearSessionCookie = "session=; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT"
)

// CookieValue returns the value of the named cookie in a Cookie header.
func CookieValue(cookieHeader, name string) (string, bool) {
	for _, pair := range strings.Split(cookieHeader, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
		if found && k == name {
			return v, true
		}
	}
	return "", false
}

// HasSessionCookie reports whether the Cookie header carries
// session=authenticated.
func HasSessionCookie(cookieHeader string) bool {
	v, ok := CookieValue(cookieHeader, SessionCookieName)
	return ok && v == SessionCookieValue
}
