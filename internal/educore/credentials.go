package educore

import "context"

// CSRF and session names used by the EDUCORE (Django) server
const (
	CSRFCookieName    = "csrftoken"
	CSRFHeaderName    = "X-CSRFToken"
	CSRFFormField     = "csrfmiddlewaretoken"
	SessionCookieName = "sessionid"
)

// Credentials are forwarded to the EDUCORE server with each request
type Credentials struct {
	CSRFToken string
	SessionID string
}

type credentialsKey struct{}

// WithCredentials returns a context carrying the caller's credentials
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFrom returns the credentials stored in the context, if any
func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok
}

// merge fills empty fields from the fallback credentials
func (c Credentials) merge(fallback Credentials) Credentials {
	if c.CSRFToken == "" {
		c.CSRFToken = fallback.CSRFToken
	}
	if c.SessionID == "" {
		c.SessionID = fallback.SessionID
	}
	return c
}
