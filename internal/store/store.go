// Package store owns the durable schema for build records and the two-way
// mapping between the nested client shape and the flat persisted row.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/garage/internal/models"
	"gorm.io/gorm"
)

// Sentinel errors callers check with errors.Is. The HTTP gateway maps these
// to status codes; the store never sees a status code.
var (
	ErrNotFound = errors.New("build not found")
	ErrConflict = errors.New("build id already exists")
	ErrInvalid  = errors.New("invalid build record")
)

// Store provides create/read-all/update/delete over build records. It holds
// the process-wide database handle and is safe for concurrent use; concurrent
// writes to the same id are last-write-wins with no conflict detection.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns every record, newest first, in the nested shape.
func (s *Store) List() ([]Record, error) {
	var rows []models.Build
	if err := s.db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list builds: %w", err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = fromRow(row)
	}
	return records, nil
}

// Create inserts a record with its client-supplied id and assigns created_at.
// A duplicate id fails with ErrConflict and leaves the existing row untouched.
// Every other field is echoed back unmodified.
func (s *Store) Create(rec Record) (Record, error) {
	if err := validate(rec); err != nil {
		return Record{}, err
	}

	row := toRow(rec)
	row.CreatedAt = time.Now().UTC()
	if err := s.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Record{}, fmt.Errorf("store: create %s: %w", rec.ID, ErrConflict)
		}
		return Record{}, fmt.Errorf("store: create %s: %w", rec.ID, err)
	}
	return fromRow(row), nil
}

// Update replaces every mutable field of the record identified by id with the
// supplied values. Full replacement: fields omitted by the caller are written
// as empty, not left unchanged. id and created_at are never altered. Returns
// ErrNotFound if no row matches.
func (s *Store) Update(id string, rec Record) (Record, error) {
	rec.ID = id
	if err := validate(rec); err != nil {
		return Record{}, err
	}

	var existing models.Build
	if err := s.db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, fmt.Errorf("store: update %s: %w", id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("store: update %s: %w", id, err)
	}

	row := toRow(rec)
	row.CreatedAt = existing.CreatedAt
	// Explicit UPDATE of every mutable column. Save would fall back to an
	// insert when the UPDATE matches nothing, resurrecting rows deleted
	// after the existence check; and MySQL reports zero affected rows for
	// a no-change update, so RowsAffected cannot signal NotFound here.
	err := s.db.Model(&models.Build{}).Where("id = ?", id).
		Select("*").Omit("id", "created_at").
		Updates(&row).Error
	if err != nil {
		return Record{}, fmt.Errorf("store: update %s: %w", id, err)
	}
	return fromRow(row), nil
}

// Delete removes the record matching id. Returns ErrNotFound when no row
// matched, distinguishable from success so callers can report "already
// deleted" vs "deleted now". Referenced image assets are never touched.
func (s *Store) Delete(id string) error {
	result := s.db.Delete(&models.Build{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("store: delete %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// validate checks the fields the schema declares non-null. Spec sub-fields
// and all remaining scalars are optional.
func validate(rec Record) error {
	var missing []string
	if rec.ID == "" {
		missing = append(missing, "id")
	}
	if rec.Name == "" {
		missing = append(missing, "name")
	}
	if rec.Category == "" {
		missing = append(missing, "category")
	}
	if rec.Year == 0 {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return fmt.Errorf("store: missing required fields %s: %w", strings.Join(missing, ", "), ErrInvalid)
	}
	return nil
}
