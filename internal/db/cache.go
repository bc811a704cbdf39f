package db

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCacheTTL is how long resolved chapter metadata is reused
const DefaultCacheTTL = 24 * time.Hour

// CachedChapter is resolved chapter metadata kept to avoid refetching the
// chapter page for display names
type CachedChapter struct {
	URL       string
	Site      string
	Manga     string
	Label     string
	Pages     int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// GenerateCacheKey generates the cache key for a chapter URL
func GenerateCacheKey(url string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return fmt.Sprintf("%x", hash[:16])
}

// GetCachedChapter returns the cached entry for url, or nil on a miss or
// when the entry has expired
func GetCachedChapter(url string) (*CachedChapter, error) {
	c := &CachedChapter{}
	var site sql.NullString
	var expires int64
	err := database.QueryRow(`
		SELECT url, site, manga, label, pages, created_at, expires_at
		FROM chapter_cache
		WHERE cache_key = ? AND expires_at > ?`, GenerateCacheKey(url), time.Now().Unix()).Scan(
		&c.URL, &site, &c.Manga, &c.Label, &c.Pages, &c.CreatedAt, &expires,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}
	c.Site = site.String
	c.ExpiresAt = time.Unix(expires, 0)
	return c, nil
}

// SaveCachedChapter stores c for ttl, replacing any previous entry
func SaveCachedChapter(c *CachedChapter, ttl time.Duration) error {
	c.ExpiresAt = time.Now().Add(ttl)
	_, err := database.Exec(`
		INSERT OR REPLACE INTO chapter_cache (cache_key, url, site, manga, label, pages, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		GenerateCacheKey(c.URL), c.URL, c.Site, c.Manga, c.Label, c.Pages, c.ExpiresAt.Unix())
	return err
}

// CleanExpiredCache removes expired entries and returns how many were removed
func CleanExpiredCache() (int64, error) {
	res, err := database.Exec(`DELETE FROM chapter_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearCache removes every cached entry
func ClearCache() error {
	_, err := database.Exec(`DELETE FROM chapter_cache`)
	return err
}

// GetCacheStats returns the number of cached entries and how many of them expired
func GetCacheStats() (total int, expired int, err error) {
	err = database.QueryRow(`SELECT COUNT(*) FROM chapter_cache`).Scan(&total)
	if err != nil {
		return 0, 0, err
	}

	err = database.QueryRow(`SELECT COUNT(*) FROM chapter_cache WHERE expires_at <= ?`, time.Now().Unix()).Scan(&expired)
	if err != nil {
		return total, 0, err
	}

	return total, expired, nil
}
