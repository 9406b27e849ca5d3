package store

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"time"

	"openclaw-setup/internal/domain"
)

// Gateway token cookie attributes.
const (
	TokenCookieName   = "openclaw_token"
	TokenCookiePath   = "/"
	TokenCookieMaxAge = 31536000 // one year, in seconds
)

// TokenCookie builds the cookie that carries the gateway token.
func TokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     TokenCookiePath,
		MaxAge:   TokenCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	}
}

// TokenStore implements domain.TokenStore. The token is persisted in the
// state database and mirrored into an HTTP cookie jar so later requests to
// the gateway carry it.
type TokenStore struct {
	store *Store
	jar   http.CookieJar
	base  *url.URL
	now   func() time.Time
}

// NewTokenStore creates a TokenStore. jar and base may be nil, in which case
// the token is only persisted.
func NewTokenStore(s *Store, jar http.CookieJar, base *url.URL) *TokenStore {
	return &TokenStore{store: s, jar: jar, base: base, now: time.Now}
}

// SaveToken persists token as the openclaw_token cookie.
func (t *TokenStore) SaveToken(ctx context.Context, token string) error {
	c := TokenCookie(token)
	expires := t.now().Add(time.Duration(c.MaxAge) * time.Second).UTC()
	_, err := t.store.db.ExecContext(ctx,
		`INSERT INTO cookies (name, value, path, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, path = excluded.path, expires_at = excluded.expires_at`,
		c.Name, c.Value, c.Path, expires.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewDomainError("TokenStore.SaveToken", domain.ErrStateStore, err.Error())
	}
	t.mirror(c)
	return nil
}

// LoadToken returns the stored token, or "" when none is stored or it has
// expired.
func (t *TokenStore) LoadToken(ctx context.Context) (string, error) {
	var value, expires string
	err := t.store.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cookies WHERE name = ?", TokenCookieName,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", domain.NewDomainError("TokenStore.LoadToken", domain.ErrStateStore, err.Error())
	}
	exp, err := time.Parse(time.RFC3339Nano, expires)
	if err != nil || !t.now().Before(exp) {
		return "", nil
	}
	return value, nil
}

// Restore copies a stored, unexpired token into the cookie jar. It reports
// whether a token was found.
func (t *TokenStore) Restore(ctx context.Context) (bool, error) {
	token, err := t.LoadToken(ctx)
	if err != nil || token == "" {
		return false, err
	}
	t.mirror(TokenCookie(token))
	return true, nil
}

func (t *TokenStore) mirror(c *http.Cookie) {
	if t.jar == nil || t.base == nil {
		return
	}
	t.jar.SetCookies(t.base, []*http.Cookie{c})
}

var _ domain.TokenStore = (*TokenStore)(nil)
