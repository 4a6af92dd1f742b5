package sqlite

import (
	"fmt"

	"offerlens/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.CaptureDetection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (capture_id, label, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.CaptureID, det.Label, det.X, det.Y, det.Width, det.Height, det.Score); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByCaptureID returns the detections of one capture in insertion order.
func (r *DetectionRepository) GetByCaptureID(captureID string) ([]model.CaptureDetection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, capture_id, label, x, y, width, height, confidence
		FROM detections WHERE capture_id = ? ORDER BY id
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.CaptureDetection
	for rows.Next() {
		var det model.CaptureDetection
		if err := rows.Scan(&det.ID, &det.CaptureID, &det.Label, &det.X, &det.Y, &det.Width, &det.Height, &det.Score); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}
	return detections, rows.Err()
}

// GetLabelsByCaptureID returns the distinct labels detected in one capture.
func (r *DetectionRepository) GetLabelsByCaptureID(captureID string) ([]string, error) {
	return r.labels(`SELECT DISTINCT label FROM detections WHERE capture_id = ? ORDER BY label`, captureID)
}

// GetAllLabels returns every distinct label ever detected.
func (r *DetectionRepository) GetAllLabels() ([]string, error) {
	return r.labels(`SELECT DISTINCT label FROM detections ORDER BY label`)
}

func (r *DetectionRepository) labels(query string, args ...any) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
