package csrf

import (
	"net/http"

	"go.uber.org/zap"
)

// Issuer makes sure every request carries a CSRF token. It reuses the token
// cookie when the client sent one and otherwise generates a token and
// schedules a Set-Cookie header for it.
type Issuer struct {
	cfg Config
	settings
}

// NewIssuer returns an Issuer for cfg. An empty CookieName falls back to
// DefaultCookieName; TokenLength is used as given.
func NewIssuer(cfg Config, opts ...Option) *Issuer {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Lifetime != nil {
		lt := *cfg.Lifetime
		cfg.Lifetime = &lt
	}
	s := newSettings(opts)
	s.log = s.log.With(zap.String("component", "csrf.issuer"))
	return &Issuer{cfg: cfg, settings: s}
}

// Config returns a copy of the issuer configuration.
func (i *Issuer) Config() Config {
	return i.cfg
}

// Issue resolves the token for r and returns r with the token attached to its
// context. When the token is new, its Set-Cookie header is added to w before
// returning, since net/http commits headers on the first write downstream.
//
// Returns:
// - the augmented request, or ErrRandomSource when a token could not be generated.
func (i *Issuer) Issue(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	if tok := i.cookieToken(r); tok != "" {
		return r.WithContext(contextWithToken(r.Context(), tok)), nil
	}

	tok, err := newToken(i.random, i.cfg.TokenLength)
	if err != nil {
		return nil, err
	}
	w.Header().Add("Set-Cookie", tokenCookie(i.cfg, tok, i.now()))
	i.metrics.issued()
	i.log.Debug("csrf token issued",
		zap.String("op", "Issue"),
		zap.String("cookie", i.cfg.CookieName),
		zap.Int("length", len(tok)),
	)

	return r.WithContext(contextWithToken(r.Context(), tok)), nil
}

// cookieToken returns the decoded token cookie. The cookie is issued under the
// percent-encoded name, so that is tried before the raw name.
func (i *Issuer) cookieToken(r *http.Request) string {
	names := []string{PercentEncode(i.cfg.CookieName)}
	if names[0] != i.cfg.CookieName {
		names = append(names, i.cfg.CookieName)
	}
	for _, name := range names {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			if tok := decodeCookieValue(c.Value); tok != "" {
				return tok
			}
		}
	}
	return ""
}

// Protect wraps next so that it always sees a token in the request context.
// Generation failures go to the ErrorHandler and next is not called.
func (i *Issuer) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2, err := i.Issue(w, r)
		if err != nil {
			i.metrics.failure(err)
			i.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r2)
	})
}
