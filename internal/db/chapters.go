package db

import (
	"database/sql"
	"errors"
	"time"
)

// ChapterStatus is the outcome of a chapter download
type ChapterStatus string

const (
	StatusCompleted ChapterStatus = "completed"
	StatusFailed    ChapterStatus = "failed"
)

// Chapter is a history record of a downloaded chapter
type Chapter struct {
	ID           int64
	URL          string
	Site         string
	Manga        string
	Label        string
	Path         string
	Archive      bool
	Pages        int
	Status       ChapterStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

const chapterColumns = `id, url, site, manga, label, path, archive, pages, status,
	error_message, created_at, updated_at, completed_at`

// RecordChapter inserts c, or updates the existing record with the same URL.
// c.ID is set to the record ID.
func RecordChapter(c *Chapter) error {
	return database.QueryRow(`
		INSERT INTO chapters (url, site, manga, label, path, archive, pages, status, error_message, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CASE WHEN ? = 'completed' THEN CURRENT_TIMESTAMP END)
		ON CONFLICT(url) DO UPDATE SET
			site = excluded.site,
			manga = excluded.manga,
			label = excluded.label,
			path = excluded.path,
			archive = excluded.archive,
			pages = excluded.pages,
			status = excluded.status,
			error_message = excluded.error_message,
			completed_at = COALESCE(excluded.completed_at, chapters.completed_at),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		c.URL, c.Site, c.Manga, c.Label, c.Path, c.Archive, c.Pages, c.Status, c.ErrorMessage, c.Status,
	).Scan(&c.ID)
}

// GetChapterByURL returns the record for url, or nil if there is none
func GetChapterByURL(url string) (*Chapter, error) {
	c, err := scanChapter(database.QueryRow(`SELECT `+chapterColumns+` FROM chapters WHERE url = ?`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListChapters returns the most recently updated records first. A limit of
// zero or less returns every record.
func ListChapters(limit int) ([]*Chapter, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := database.Query(`
		SELECT `+chapterColumns+`
		FROM chapters
		ORDER BY updated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// DeleteChapter removes the record with the given ID
func DeleteChapter(id int64) error {
	_, err := database.Exec(`DELETE FROM chapters WHERE id = ?`, id)
	return err
}

// ClearChapters removes every history record
func ClearChapters() error {
	_, err := database.Exec(`DELETE FROM chapters`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChapter(row scanner) (*Chapter, error) {
	c := &Chapter{}
	var site, path, errMsg sql.NullString
	var completed sql.NullTime
	err := row.Scan(
		&c.ID, &c.URL, &site, &c.Manga, &c.Label, &path, &c.Archive, &c.Pages, &c.Status,
		&errMsg, &c.CreatedAt, &c.UpdatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	c.Site = site.String
	c.Path = path.String
	c.ErrorMessage = errMsg.String
	if completed.Valid {
		c.CompletedAt = &completed.Time
	}
	return c, nil
}
