package csrf

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CookieBuilder assembles a Set-Cookie header value as an ordered list of
// attributes. net/http's Cookie.String writes HttpOnly before Secure, so the
// header is built here to keep the order
//
//	name=value; Path; Domain; Expires; Max-Age; Secure; HttpOnly; SameSite
//
// Callers append attributes in that order.
type CookieBuilder struct {
	attrs []string
}

// NewCookieBuilder starts a cookie with the percent-encoded name=value pair.
func NewCookieBuilder(name, value string) *CookieBuilder {
	return &CookieBuilder{attrs: []string{PercentEncode(name) + "=" + PercentEncode(value)}}
}

// Path adds Path=p unless p is empty.
func (b *CookieBuilder) Path(p string) *CookieBuilder {
	if p != "" {
		b.attrs = append(b.attrs, "Path="+p)
	}
	return b
}

// Domain adds Domain=d unless d is empty.
func (b *CookieBuilder) Domain(d string) *CookieBuilder {
	if d != "" {
		b.attrs = append(b.attrs, "Domain="+d)
	}
	return b
}

// Lifetime adds Expires (now+seconds, in http.TimeFormat) followed by Max-Age.
func (b *CookieBuilder) Lifetime(now time.Time, seconds int) *CookieBuilder {
	// time.Duration overflows past ~292 years; add whole seconds instead.
	exp := time.Unix(now.Unix()+int64(seconds), 0).UTC()
	b.attrs = append(b.attrs,
		"Expires="+exp.Format(http.TimeFormat),
		"Max-Age="+strconv.Itoa(seconds),
	)
	return b
}

// Secure adds the Secure flag when on is true.
func (b *CookieBuilder) Secure(on bool) *CookieBuilder {
	if on {
		b.attrs = append(b.attrs, "Secure")
	}
	return b
}

// HTTPOnly adds the HttpOnly flag.
func (b *CookieBuilder) HTTPOnly() *CookieBuilder {
	b.attrs = append(b.attrs, "HttpOnly")
	return b
}

// SameSite adds SameSite=Lax|Strict|None; the default mode adds nothing.
func (b *CookieBuilder) SameSite(mode http.SameSite) *CookieBuilder {
	switch mode {
	case http.SameSiteLaxMode:
		b.attrs = append(b.attrs, "SameSite=Lax")
	case http.SameSiteStrictMode:
		b.attrs = append(b.attrs, "SameSite=Strict")
	case http.SameSiteNoneMode:
		b.attrs = append(b.attrs, "SameSite=None")
	}
	return b
}

// Attributes returns a copy of the attribute list in emission order.
func (b *CookieBuilder) Attributes() []string {
	out := make([]string, len(b.attrs))
	copy(out, b.attrs)
	return out
}

// String joins the attributes into a Set-Cookie header value.
func (b *CookieBuilder) String() string {
	return strings.Join(b.attrs, "; ")
}

// tokenCookie renders the Set-Cookie value for a freshly generated token.
func tokenCookie(cfg Config, token string, now time.Time) string {
	b := NewCookieBuilder(cfg.CookieName, token).
		Path(cfg.CookiePath).
		Domain(cfg.CookieDomain)
	if cfg.Lifetime != nil {
		b.Lifetime(now, *cfg.Lifetime)
	}
	return b.Secure(cfg.Secure).HTTPOnly().SameSite(cfg.SameSite).String()
}

// PercentEncode escapes s per RFC 3986: unreserved characters are kept and
// space becomes %20.
func PercentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
