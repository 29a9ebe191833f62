package session

import "crypto/subtle"

// Credentials are the configured operator credentials for the web UI.
type Credentials struct {
	User string
	Pass string
}

// Check compares submitted credentials against the configured ones in
// constant time. Empty submitted credentials never match, even when the
// configured credentials are also empty: authentication is deny-by-default.
func (c Credentials) Check(user, pass string) bool {
	if user == "" || pass == "" {
		return false
	}
	if c.User == "" || c.Pass == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Pass)) == 1
	return userOK && passOK
}

// Enabled reports whether credentials are configured at all. With no
// credentials the login surface stays disabled and secured pages are
// reachable without a session.
func (c Credentials) Enabled() bool {
	return c.User != "" && c.Pass != ""
}
