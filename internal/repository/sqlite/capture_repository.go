package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"offerlens/internal/model"
)

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

const captureColumns = `c.id, c.filename, c.label, c.offer_count, c.timestamp, c.filepath, c.filesize`

// Insert adds a capture record.
func (r *CaptureRepository) Insert(c *model.Capture) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO captures (id, filename, label, offer_count, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Filename, c.Label, c.OfferCount, c.Timestamp, c.FilePath, c.FileSize)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

// GetByID returns the capture with id, or nil when there is none.
func (r *CaptureRepository) GetByID(id string) (*model.Capture, error) {
	return r.getOne(`SELECT `+captureColumns+` FROM captures c WHERE c.id = ?`, id)
}

// GetByFilename returns the capture stored under filename, or nil when there is none.
func (r *CaptureRepository) GetByFilename(filename string) (*model.Capture, error) {
	return r.getOne(`SELECT `+captureColumns+` FROM captures c WHERE c.filename = ?`, filename)
}

func (r *CaptureRepository) getOne(query string, arg any) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var c model.Capture
	err := r.db.Conn().QueryRow(query, arg).Scan(&c.ID, &c.Filename, &c.Label, &c.OfferCount, &c.Timestamp, &c.FilePath, &c.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return &c, nil
}

// where builds the shared WHERE clause for listing and counting.
func where(filter *model.CaptureFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(" WHERE 1=1")
	args := []any{}

	if filter == nil {
		return b.String(), args
	}

	if filter.Label != "" {
		b.WriteString(" AND (c.label = ? OR EXISTS (SELECT 1 FROM detections d WHERE d.capture_id = c.id AND d.label = ?))")
		args = append(args, filter.Label, filter.Label)
	}
	if !filter.After.IsZero() {
		b.WriteString(" AND c.timestamp >= ?")
		args = append(args, filter.After)
	}
	if !filter.Before.IsZero() {
		b.WriteString(" AND c.timestamp <= ?")
		args = append(args, filter.Before)
	}
	return b.String(), args
}

// GetAll returns captures matching filter, newest first.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	query := `SELECT ` + captureColumns + ` FROM captures c` + clause + ` ORDER BY c.timestamp DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	captures := []model.Capture{}
	for rows.Next() {
		var c model.Capture
		if err := rows.Scan(&c.ID, &c.Filename, &c.Label, &c.OfferCount, &c.Timestamp, &c.FilePath, &c.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// GetTotalCount returns how many captures match filter, ignoring paging.
func (r *CaptureRepository) GetTotalCount(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures c`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, nil
}

// GetTotalSize returns the summed file size of every capture in bytes.
func (r *CaptureRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM captures`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum capture sizes: %w", err)
	}
	return size, nil
}

// DeleteByFilename removes a capture and its detections.
func (r *CaptureRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM detections WHERE capture_id IN (SELECT id FROM captures WHERE filename = ?)`, filename); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM captures WHERE filename = ?`, filename); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return tx.Commit()
}

// DeleteAll removes every capture and detection.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM captures`); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}
	return nil
}
