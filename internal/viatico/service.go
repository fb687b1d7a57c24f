package viatico

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/artifact"
	"github.com/zombor/viatico-tracker/internal/expense"
	"github.com/zombor/viatico-tracker/internal/report"
	"github.com/zombor/viatico-tracker/internal/signature"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random v4 UUIDs
type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles viatico records, their evidence and report exports
type Service struct {
	db          DB
	storage     Storage
	builder     *report.Builder
	logger      *zap.Logger
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the system clock
func NewService(db DB, storage Storage, builder *report.Builder, logger *zap.Logger) *Service {
	return NewServiceWithDeps(db, storage, builder, logger, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, builder *report.Builder, logger *zap.Logger, idGen IDGenerator, timeSrc TimeSource) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          db,
		storage:     storage,
		builder:     builder,
		logger:      logger,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Location returns the zone used to interpret report dates
func (s *Service) Location() *time.Location {
	return s.builder.Location()
}

// CreateRecord validates and stores a new record. ID and timestamps are assigned here.
func (s *Service) CreateRecord(in *expense.Record) (*expense.Record, error) {
	now := s.timeSource.Now()
	record := *in
	record.ID = s.idGenerator.Generate()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.SaveRecord(&record); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}

	s.logger.Info("Record created",
		zap.String("id", record.ID),
		zap.String("technician", record.TechnicianName),
		zap.String("total_spent", record.TotalSpent().StringFixed(2)),
	)
	return &record, nil
}

// GetRecord retrieves a record by ID
func (s *Service) GetRecord(id string) (*expense.Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// ListRecords returns the records matching filter, oldest first
func (s *Service) ListRecords(filter report.Filter) ([]*expense.Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	records = filter.Apply(records)
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// UpdateRecord replaces the editable fields of a record. Photos and signature are
// kept unless the update carries them.
func (s *Service) UpdateRecord(id string, in *expense.Record) (*expense.Record, error) {
	existing, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting record for update: %w", err)
	}

	record := *in
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = s.timeSource.Now()
	if record.Photos == nil {
		record.Photos = existing.Photos
	}
	if record.Signature.IsZero() {
		record.Signature = existing.Signature
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.SaveRecord(&record); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}
	return &record, nil
}

// DeleteRecord removes a record
func (s *Service) DeleteRecord(id string) error {
	if err := s.db.DeleteRecord(id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	s.logger.Info("Record deleted", zap.String("id", id))
	return nil
}

// AddPhoto normalizes an uploaded image and stores it inline on the record
func (s *Service) AddPhoto(id string, data []byte, contentType string) (*expense.Record, error) {
	photo, err := artifact.FromUpload(data, contentType)
	if err != nil {
		s.logger.Warn("Failed to convert photo",
			zap.String("id", id),
			zap.String("content_type", contentType),
			zap.Int("file_size", len(data)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("converting photo: %w", err)
	}
	return s.appendPhoto(id, photo)
}

// AddPhotoLink attaches a remote image by URL. The URL is never fetched.
func (s *Service) AddPhotoLink(id, url string) (*expense.Record, error) {
	photo := artifact.Link(url)
	if !artifact.IsRemoteLink(photo.String()) {
		return nil, fmt.Errorf("%w: photo link %q is not an http(s) or hosted image URL", expense.ErrInvalidRecord, url)
	}
	return s.appendPhoto(id, photo)
}

func (s *Service) appendPhoto(id string, photo artifact.Artifact) (*expense.Record, error) {
	return s.modify(id, func(r *expense.Record) error {
		if len(r.Photos) >= expense.MaxPhotos {
			return fmt.Errorf("record %s has %d photos: %w", id, len(r.Photos), ErrPhotoLimit)
		}
		r.Photos = append(r.Photos, photo)
		return nil
	})
}

// DeletePhoto removes the photo at index
func (s *Service) DeletePhoto(id string, index int) (*expense.Record, error) {
	return s.modify(id, func(r *expense.Record) error {
		if index < 0 || index >= len(r.Photos) {
			return fmt.Errorf("photo %d of record %s: %w", index, id, ErrNotFound)
		}
		r.Photos = append(r.Photos[:index:index], r.Photos[index+1:]...)
		return nil
	})
}

// Sign replays a captured gesture on a fresh pad and stores the finalized image.
// An empty drawing fails with signature.ErrEmptySignature.
func (s *Service) Sign(id string, gesture signature.Gesture) (*expense.Record, error) {
	return s.modify(id, func(r *expense.Record) error {
		pad := signature.NewPad()
		if err := pad.Replay(gesture); err != nil {
			return fmt.Errorf("%w: %w", expense.ErrInvalidRecord, err)
		}
		sig, err := pad.Finalize()
		if err != nil {
			return err
		}
		r.Signature = sig
		return nil
	})
}

// ClearSignature removes the record's signature
func (s *Service) ClearSignature(id string) (*expense.Record, error) {
	return s.modify(id, func(r *expense.Record) error {
		r.Signature = artifact.Artifact{}
		return nil
	})
}

// modify loads a record, applies fn and saves it with a fresh UpdatedAt
func (s *Service) modify(id string, fn func(r *expense.Record) error) (*expense.Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	if err := fn(record); err != nil {
		return nil, err
	}
	record.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveRecord(record); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}
	return record, nil
}

// Stats aggregates the records matching filter
func (s *Service) Stats(filter report.Filter) (expense.Summary, error) {
	records, err := s.ListRecords(filter)
	if err != nil {
		return expense.Summary{}, err
	}
	return expense.Summarize(records), nil
}

// ExportReport renders the matching records, archives the workbook and indexes it
func (s *Service) ExportReport(filter report.Filter) (*report.Workbook, error) {
	records, err := s.ListRecords(report.Filter{})
	if err != nil {
		return nil, err
	}

	rep, err := s.builder.Generate(records, filter)
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}

	// a same-minute export reuses the name of an already indexed report
	_, getErr := s.storage.Get(rep.FileName)
	replaced := getErr == nil
	if err := s.storage.Save(rep.FileName, rep.Data); err != nil {
		return nil, fmt.Errorf("archiving report: %w", err)
	}
	entry := &ReportEntry{
		Name:        rep.FileName,
		GeneratedAt: rep.GeneratedAt,
		Rows:        len(rep.Rows),
		FailedSlots: rep.FailedSlots(),
		Size:        len(rep.Data),
		Filter:      filter,
	}
	if err := s.db.SaveReport(entry); err != nil {
		if replaced {
			return nil, fmt.Errorf("indexing report: %w", err)
		}
		if delErr := s.storage.Delete(rep.FileName); delErr != nil {
			s.logger.Warn("Failed to remove unindexed report", zap.String("file", rep.FileName), zap.Error(delErr))
		}
		return nil, fmt.Errorf("indexing report: %w", err)
	}
	return rep, nil
}

// ListReports returns the archived reports, newest first
func (s *Service) ListReports() ([]*ReportEntry, error) {
	entries, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].GeneratedAt.After(entries[j].GeneratedAt)
	})
	return entries, nil
}

// GetReport reads an archived report by file name
func (s *Service) GetReport(name string) ([]byte, error) {
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return data, nil
}
