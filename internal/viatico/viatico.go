package viatico

import (
	"errors"
	"time"

	"github.com/zombor/viatico-tracker/internal/report"
)

var (
	// ErrNotFound is returned when a record, photo or archived report does not exist
	ErrNotFound = errors.New("not found")
	// ErrPhotoLimit is returned when a photo is added to a record that already has the maximum
	ErrPhotoLimit = errors.New("photo limit reached")
)

// ReportEntry describes an archived report
type ReportEntry struct {
	Name        string        `json:"name"`
	GeneratedAt time.Time     `json:"generated_at"`
	Rows        int           `json:"rows"`
	FailedSlots int           `json:"failed_slots"`
	Size        int           `json:"size"`
	Filter      report.Filter `json:"filter"`
}
