package csrf

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Policy reports whether a request with the given method must be validated.
type Policy func(method string) bool

// ExemptSafeMethods validates every method except the listed ones. With no
// arguments it exempts GET, HEAD and OPTIONS.
func ExemptSafeMethods(methods ...string) Policy {
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}
	exempt := make(map[string]bool, len(methods))
	for _, m := range methods {
		exempt[strings.ToUpper(m)] = true
	}
	return func(method string) bool {
		return !exempt[method]
	}
}

// AlwaysRequired validates every request regardless of method.
func AlwaysRequired(string) bool { return true }

// Decision is the outcome of a firewall check.
type Decision int

const (
	// DecisionExempt: the policy did not require validation.
	DecisionExempt Decision = iota
	// DecisionAccepted: the submitted token matched.
	DecisionAccepted
	// DecisionRejected: the submitted token was missing or did not match.
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionExempt:
		return "exempt"
	case DecisionAccepted:
		return "accepted"
	case DecisionRejected:
		return "rejected"
	}
	return "unknown"
}

// Firewall rejects requests whose submitted token does not match the token an
// Issuer attached to the request context.
type Firewall struct {
	cfg FirewallConfig
	settings
}

// NewFirewall returns a firewall that exempts GET, HEAD and OPTIONS unless
// cfg.Policy says otherwise.
func NewFirewall(cfg FirewallConfig, opts ...Option) *Firewall {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.FieldName == "" {
		cfg.FieldName = DefaultFieldName
	}
	if cfg.Policy == nil {
		cfg.Policy = ExemptSafeMethods()
	}
	s := newSettings(opts)
	s.log = s.log.With(zap.String("component", "csrf.firewall"))
	return &Firewall{cfg: cfg, settings: s}
}

// NewStrictFirewall returns a firewall that validates every method.
func NewStrictFirewall(cfg FirewallConfig, opts ...Option) *Firewall {
	cfg.Policy = AlwaysRequired
	return NewFirewall(cfg, opts...)
}

// Check evaluates r without writing anything. The error is non-nil only for
// ErrMissingTokenAttribute; a bad token is reported as DecisionRejected.
func (f *Firewall) Check(r *http.Request) (Decision, error) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		return DecisionRejected, ErrMissingTokenAttribute
	}
	if !f.cfg.Policy(r.Method) {
		return DecisionExempt, nil
	}

	log := f.log.With(zap.String("method", r.Method), zap.String("path", r.URL.Path))

	if f.cfg.EnforceOriginCheck {
		if err := validateOriginOrReferer(r, f.cfg.AllowedOrigin); err != nil {
			log.Debug("csrf origin check failed", zap.Error(err))
			return DecisionRejected, nil
		}
	}

	supplied := suppliedToken(r, f.cfg.HeaderName, f.cfg.FieldName)
	if subtle.ConstantTimeCompare([]byte(token), []byte(supplied)) != 1 {
		log.Debug("Bad CSRF Token", zap.Bool("supplied", supplied != ""))
		return DecisionRejected, nil
	}
	return DecisionAccepted, nil
}

// Protect wraps next with the firewall. Rejected requests get an empty 412
// response and never reach next.
func (f *Firewall) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := f.Check(r)
		if err != nil {
			f.metrics.failure(err)
			f.onError(w, r, err)
			return
		}
		f.metrics.decision(d)
		if d == DecisionRejected {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateOriginOrReferer checks whether the request is same-site according to
// the allowed host policy. When allowed is empty, it falls back to r.Host.
// It prefers the Origin header; if empty, it falls back to Referer.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	if origin == "" && ref == "" {
		return errors.New("no origin/referer")
	}
	if origin != "" && !sameSite(origin, host) {
		return errors.New("bad origin")
	}
	if origin == "" && !sameSite(ref, host) {
		return errors.New("bad referer")
	}
	return nil
}
