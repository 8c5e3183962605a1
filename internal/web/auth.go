package web

import (
	"mime"
	"net/http"

	"github.com/educore/monitor/internal/educore"
)

// CredentialsMiddleware captures the EDUCORE session and CSRF token sent by
// the browser so requests made on its behalf carry the same identity.
// The token is read from the csrftoken cookie, the X-CSRFToken header or the
// csrfmiddlewaretoken form field, in that order.
func CredentialsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := credentialsFromRequest(r)
		if creds.CSRFToken != "" || creds.SessionID != "" {
			r = r.WithContext(educore.WithCredentials(r.Context(), creds))
		}
		next.ServeHTTP(w, r)
	})
}

func credentialsFromRequest(r *http.Request) educore.Credentials {
	var creds educore.Credentials

	if c, err := r.Cookie(educore.SessionCookieName); err == nil {
		creds.SessionID = c.Value
	}

	if c, err := r.Cookie(educore.CSRFCookieName); err == nil && c.Value != "" {
		creds.CSRFToken = c.Value
		return creds
	}
	if token := r.Header.Get(educore.CSRFHeaderName); token != "" {
		creds.CSRFToken = token
		return creds
	}
	// Only look at the form of a urlencoded body; multipart bodies are left alone
	if r.Method == http.MethodPost && isURLEncoded(r) {
		if token := r.PostFormValue(educore.CSRFFormField); token != "" {
			creds.CSRFToken = token
		}
	}
	return creds
}

// isURLEncoded reports whether the body is a urlencoded form, whatever its
// parameters (e.g. "; charset=UTF-8")
func isURLEncoded(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
