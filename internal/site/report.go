package site

import (
	"time"

	"github.com/google/uuid"
)

// ChapterStatus is the outcome of rendering one chapter.
type ChapterStatus string

const (
	StatusRendered ChapterStatus = "rendered"
	StatusPartial  ChapterStatus = "partial" // Page written, some blocks errored inline
	StatusFailed   ChapterStatus = "failed"  // No page written
)

// ChapterReport records one chapter's build outcome.
type ChapterReport struct {
	Path         string        `json:"path"`
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	Status       ChapterStatus `json:"status"`
	FailedBlocks int           `json:"failed_blocks,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Report summarizes a whole build.
type Report struct {
	BuildID  string          `json:"build_id"`
	Started  time.Time       `json:"started"`
	Duration time.Duration   `json:"duration"`
	Chapters []ChapterReport `json:"chapters"`
}

func newReport() *Report {
	return &Report{
		BuildID: uuid.NewString(),
		Started: time.Now(),
	}
}

// Failed reports whether any chapter failed to produce a page.
func (r *Report) Failed() bool {
	for _, ch := range r.Chapters {
		if ch.Status == StatusFailed {
			return true
		}
	}
	return false
}

// FailedBlocks returns the total count of inline block errors.
func (r *Report) FailedBlocks() int {
	n := 0
	for _, ch := range r.Chapters {
		n += ch.FailedBlocks
	}
	return n
}
