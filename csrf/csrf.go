package csrf

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
)

// Chain composes an Issuer and a Firewall into one middleware, issuer first.
//
// Params:
// - i: issuer that resolves or generates the token.
// - f: firewall validating the token; may be nil to only issue tokens.
//
// Returns:
// - a middleware suitable for chi's Use or any func(http.Handler) http.Handler chain.
func Chain(i *Issuer, f *Firewall) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if f != nil {
			next = f.Protect(next)
		}
		return i.Protect(next)
	}
}

// TokenHandler returns an HTTP handler that writes the current CSRF token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the token in the response body (text/plain).
func TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := TokenFromContext(r.Context()); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.Write([]byte(tok))
			return
		}
		http.Error(w, "no token", http.StatusInternalServerError)
	})
}

// TemplateField renders a hidden form input carrying the request token, or
// an empty string when no Issuer ran.
func TemplateField(ctx context.Context, fieldName string) template.HTML {
	tok, ok := TokenFromContext(ctx)
	if !ok {
		return ""
	}
	if fieldName == "" {
		fieldName = DefaultFieldName
	}
	return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
		template.HTMLEscapeString(fieldName), template.HTMLEscapeString(tok)))
}
