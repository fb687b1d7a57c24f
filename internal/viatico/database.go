package viatico

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/viatico-tracker/internal/expense"
)

const (
	recordBucketName = "viaticos"
	reportBucketName = "reports"
)

// DB defines the interface for database operations
type DB interface {
	// SaveRecord inserts or replaces a record
	SaveRecord(record *expense.Record) error

	// GetRecord retrieves a record by ID
	GetRecord(id string) (*expense.Record, error)

	// ListRecords returns all records in key order
	ListRecords() ([]*expense.Record, error)

	// DeleteRecord removes a record
	DeleteRecord(id string) error

	// SaveReport records an archived report
	SaveReport(entry *ReportEntry) error

	// ListReports returns every archived report
	ListReports() ([]*ReportEntry, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file and its buckets
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{recordBucketName, reportBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveRecord stores the record as JSON under its ID
func (b *BoltDB) SaveRecord(record *expense.Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return tx.Bucket([]byte(recordBucketName)).Put([]byte(record.ID), data)
	})
}

// GetRecord retrieves a record by ID
func (b *BoltDB) GetRecord(id string) (*expense.Record, error) {
	var record *expense.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshaling record %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns all records
func (b *BoltDB) ListRecords() ([]*expense.Record, error) {
	records := make([]*expense.Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucketName)).ForEach(func(k, v []byte) error {
			var record expense.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record %s: %w", k, err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes a record, failing with ErrNotFound when it does not exist
func (b *BoltDB) DeleteRecord(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

// SaveReport stores an archive entry under its file name
func (b *BoltDB) SaveReport(entry *ReportEntry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling report entry: %w", err)
		}
		return tx.Bucket([]byte(reportBucketName)).Put([]byte(entry.Name), data)
	})
}

// ListReports returns every archive entry. File names embed the generation
// time, so key order is chronological.
func (b *BoltDB) ListReports() ([]*ReportEntry, error) {
	entries := make([]*ReportEntry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportBucketName)).ForEach(func(k, v []byte) error {
			var entry ReportEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling report entry %s: %w", k, err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
