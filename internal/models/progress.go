package models

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Scroll modes.
const (
	ScrollContinuous = "continuous"
	ScrollSingle     = "single"
)

// TimestampLayout is the fixed-width UTC layout used for LastRead. Every
// record is normalized to it before being written, so lexical order of two
// LastRead values equals their chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var hashRe = regexp.MustCompile(`^[0-9a-f]+$`)

// Progress is the reading position of one document, identified by content
// hash rather than path so renames do not orphan it.
type Progress struct {
	Hash           string  `json:"hash"`
	CurrentPage    uint32  `json:"current_page"`
	TotalPages     uint32  `json:"total_pages"`
	Zoom           float64 `json:"zoom"`
	ScrollMode     string  `json:"scroll_mode"`
	ScrollPosition float64 `json:"scroll_position"`
	LastRead       string  `json:"last_read"`
	Version        uint64  `json:"version"`
}

// NewProgress returns a record with the reader's defaults for hash.
func NewProgress(hash string, now time.Time) Progress {
	return Progress{
		Hash:        hash,
		CurrentPage: 1,
		Zoom:        1.0,
		ScrollMode:  ScrollContinuous,
		LastRead:    FormatTimestamp(now),
	}
}

// Validate checks field ranges. It does not check LastRead's layout; use
// NormalizeTimestamp for that.
func (p *Progress) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Hash, validation.Required, validation.Length(1, 64), validation.Match(hashRe)),
		validation.Field(&p.Zoom, validation.Min(0.0)),
		validation.Field(&p.ScrollMode, validation.Required, validation.In(ScrollContinuous, ScrollSingle)),
		validation.Field(&p.LastRead, validation.Required),
	)
}

// ValidHash reports whether hash is usable as a record key.
func ValidHash(hash string) bool {
	return len(hash) > 0 && len(hash) <= 64 && hashRe.MatchString(hash)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NormalizeTimestamp converts any RFC 3339 timestamp into TimestampLayout.
func NormalizeTimestamp(s string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}
