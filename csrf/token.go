package csrf

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 32 << 20
)

// GenerateToken returns a fresh n character token read from crypto/rand.
func GenerateToken(n int) (string, error) {
	return newToken(rand.Reader, n)
}

// newToken reads n bytes from src and returns them as an n character
// url-safe string. RawURLEncoding yields ceil(4n/3) >= n characters, so
// truncation never comes up short.
func newToken(src io.Reader, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: token length %d", ErrRandomSource, n)
	}
	b := make([]byte, n)
	for off := 0; off < n; {
		m, err := src.Read(b[off:])
		off += m
		if err != nil && off < n {
			return "", fmt.Errorf("%w: %w", ErrRandomSource, err)
		}
		if m == 0 && err == nil {
			return "", fmt.Errorf("%w: entropy source returned no bytes", ErrRandomSource)
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}

// suppliedToken returns the token the client submitted alongside the cookie.
// A present header wins even when empty; otherwise the body field is used.
func suppliedToken(r *http.Request, headerName, fieldName string) string {
	if vals := r.Header.Values(headerName); len(vals) > 0 {
		return strings.Join(vals, ", ")
	}
	return bodyField(r, fieldName)
}

// bodyField looks fieldName up in a JSON object or form body. Only string
// values count.
func bodyField(r *http.Request, fieldName string) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return jsonField(r, fieldName)
	case mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return ""
		}
		return r.PostForm.Get(fieldName)
	}
	return ""
}

// jsonField decodes the body as an object and restores it so downstream
// handlers can read it again.
func jsonField(r *http.Request, fieldName string) string {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal(buf, &data); err != nil {
		return ""
	}
	s, _ := data[fieldName].(string)
	return s
}

// decodeCookieValue undoes the percent-encoding applied when the cookie was
// issued. Values that do not decode are used as sent.
func decodeCookieValue(v string) string {
	if d, err := url.QueryUnescape(v); err == nil {
		return d
	}
	return v
}

// sameSite reports whether the Origin/Referer URL points at allowedHost.
func sameSite(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	// Host only (may include port).
	return strings.EqualFold(u.Host, allowedHost)
}
