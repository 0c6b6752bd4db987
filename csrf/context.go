package csrf

import "context"

// TokenAttribute names the request attribute carrying the resolved token.
const TokenAttribute = "csrfToken"

type ctxKey string

const tokenKey ctxKey = TokenAttribute

// contextWithToken returns a derived context that stores the given CSRF token.
func contextWithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey, tok)
}

// TokenFromContext returns the token stored by an Issuer, if present.
//
// Params:
// - ctx: context potentially containing a token set by the Issuer.
//
// Returns:
// - token (string) and a boolean indicating whether a non-empty token was found.
func TokenFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(tokenKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
