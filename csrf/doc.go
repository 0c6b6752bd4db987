// Package csrf provides CSRF protection for Go net/http servers using the
// double-submit cookie pattern, split into two chainable middleware stages.
//
// How it works
//   - Issuer: reads the token cookie, or generates a random token of
//     Config.TokenLength characters and schedules a Set-Cookie header
//     (HttpOnly always, Secure/Expires/Max-Age per Config). The token is put
//     in the request context, readable via TokenFromContext.
//   - Firewall: for requests its Policy marks as requiring validation, the
//     token from the context must equal the token submitted in the
//     X-CSRF-Token header or, failing that, the csrf-token body field (JSON
//     object or form). Comparison is done in constant time. A mismatch is
//     answered with an empty 412 and the chain stops.
//
// The lenient firewall (NewFirewall) exempts GET, HEAD and OPTIONS; the strict
// one (NewStrictFirewall) validates every method.
//
// Fatal errors (ErrRandomSource, ErrMissingTokenAttribute) are handed to the
// ErrorHandler, by default a logged 500. They signal broken wiring or a
// broken entropy source, never a bad request.
//
// Typical usage
//
//	iss := csrf.NewIssuer(csrf.DefaultConfig())
//	fw := csrf.NewFirewall(csrf.FirewallConfig{})
//	r := chi.NewRouter()
//	r.Use(iss.Protect, fw.Protect)
//
// In handlers, you can read the token from context for rendering or APIs:
//
//	if tok, ok := csrf.TokenFromContext(r.Context()); ok {
//	    // use tok in templates or return it from an endpoint
//	}
//
// For SPAs, expose a small endpoint that returns the current token:
//
//	r.Get("/csrf-token", csrf.TokenHandler().ServeHTTP)
package csrf
