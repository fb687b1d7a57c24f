package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/zombor/viatico-tracker/internal/expense"
)

// Filter selects the records that go into a report.
// A nil or empty field matches everything.
type Filter struct {
	DateStart  *time.Time `json:"date_start,omitempty"`
	DateEnd    *time.Time `json:"date_end,omitempty"`
	Technician string     `json:"technician,omitempty"`
	Client     string     `json:"client,omitempty"`
}

// IsEmpty reports whether no field of the filter is populated
func (f Filter) IsEmpty() bool {
	return f.DateStart == nil && f.DateEnd == nil &&
		strings.TrimSpace(f.Technician) == "" && strings.TrimSpace(f.Client) == ""
}

// Matches reports whether r passes every populated predicate.
// The date range is inclusive on both ends and compared against EntryTime.
func (f Filter) Matches(r *expense.Record) bool {
	if r == nil {
		return false
	}
	if f.DateStart != nil && r.EntryTime.Before(*f.DateStart) {
		return false
	}
	if f.DateEnd != nil && r.EntryTime.After(*f.DateEnd) {
		return false
	}
	if !containsFold(r.TechnicianName, f.Technician) {
		return false
	}
	return containsFold(r.Client, f.Client)
}

// Apply returns the matching records in input order
func (f Filter) Apply(records []*expense.Record) []*expense.Record {
	matched := make([]*expense.Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Describe renders the populated fields for the report's metadata line
func (f Filter) Describe(loc *time.Location) []string {
	var parts []string
	switch {
	case f.DateStart != nil && f.DateEnd != nil:
		parts = append(parts, fmt.Sprintf("Period: %s - %s",
			f.DateStart.In(loc).Format(dateLayout), f.DateEnd.In(loc).Format(dateLayout)))
	case f.DateStart != nil:
		parts = append(parts, "From: "+f.DateStart.In(loc).Format(dateLayout))
	case f.DateEnd != nil:
		parts = append(parts, "Until: "+f.DateEnd.In(loc).Format(dateLayout))
	}
	if t := strings.TrimSpace(f.Technician); t != "" {
		parts = append(parts, "Technician: "+t)
	}
	if c := strings.TrimSpace(f.Client); c != "" {
		parts = append(parts, "Client: "+c)
	}
	return parts
}

func containsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
