package repositories

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var _ http.CookieJar = (*CookieJar)(nil)

// CookieJar is an [http.CookieJar] whose cookies are mirrored into the cookies table.
//
// Matching and expiry are delegated to [cookiejar.Jar]; the table only lets a later process
// replay the cookies the backend issued to an earlier one. Session cookies are persisted too.
type CookieJar struct {
	mu     sync.Mutex
	db     *sql.DB
	jar    *cookiejar.Jar
	logger *log.Logger
}

// NewCookieJar creates a jar and loads every unexpired stored cookie into it.
func NewCookieJar(db *sql.DB, logger *log.Logger) (*CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	j := &CookieJar{db: db, jar: jar, logger: logger}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

// Cookies implements [http.CookieJar].
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies implements [http.CookieJar]. Persistence failures are logged, not returned,
// since the interface has no error result; the in-memory jar is always updated.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	origin := cookieOrigin(u)
	now := time.Now().UTC()
	err := withTx(j.db, func(tx *sql.Tx) error {
		for _, c := range cookies {
			if err := storeCookie(tx, origin, c, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		j.logger.Warn("failed to persist cookies", "origin", origin, "error", err)
	}
}

// Purge removes every stored cookie and resets the in-memory jar.
func (j *CookieJar) Purge() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to reset cookie jar: %w", err)
	}
	j.jar = jar

	if _, err := j.db.Exec("DELETE FROM cookies"); err != nil {
		return fmt.Errorf("failed to purge cookies: %w", err)
	}
	return nil
}

func (j *CookieJar) load() error {
	rows, err := j.db.Query(`
		SELECT origin, name, value, domain, path, expires_at, secure, http_only
		FROM cookies
		WHERE expires_at IS NULL OR expires_at > ?
	`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			origin    string
			c         http.Cookie
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&origin, &c.Name, &c.Value, &c.Domain, &c.Path, &expiresAt, &c.Secure, &c.HttpOnly); err != nil {
			return fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expiresAt.Valid {
			c.Expires = expiresAt.Time
		}

		u, err := url.Parse(origin)
		if err != nil {
			j.logger.Warn("skipping cookie with bad origin", "origin", origin, "error", err)
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{&c})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

// storeCookie upserts c, or deletes it when the backend expired or emptied it.
func storeCookie(tx *sql.Tx, origin string, c *http.Cookie, now time.Time) error {
	var expires sql.NullTime
	switch {
	case c.MaxAge > 0:
		expires = sql.NullTime{Time: now.Add(time.Duration(c.MaxAge) * time.Second), Valid: true}
	case !c.Expires.IsZero():
		expires = sql.NullTime{Time: c.Expires.UTC(), Valid: true}
	}

	removed := c.MaxAge < 0 || c.Value == "" || (expires.Valid && !expires.Time.After(now))
	if removed {
		_, err := tx.Exec("DELETE FROM cookies WHERE origin = ? AND name = ? AND domain = ? AND path = ?",
			origin, c.Name, c.Domain, c.Path)
		if err != nil {
			return fmt.Errorf("failed to delete cookie %s: %w", c.Name, err)
		}
		return nil
	}

	query := `
		INSERT INTO cookies (origin, name, domain, path, value, expires_at, secure, http_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin, name, domain, path) DO UPDATE SET
			value = excluded.value, expires_at = excluded.expires_at,
			secure = excluded.secure, http_only = excluded.http_only
	`
	if _, err := tx.Exec(query, origin, c.Name, c.Domain, c.Path, c.Value, expires, c.Secure, c.HttpOnly); err != nil {
		return fmt.Errorf("failed to store cookie %s: %w", c.Name, err)
	}
	return nil
}

// cookieOrigin keeps the parts of u that cookiejar uses for default domain and path.
func cookieOrigin(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}
