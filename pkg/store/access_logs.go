package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/australsec/opswatch/pkg/models"
)

var selectAccessLogs = `SELECT * FROM access_logs`

// AccessLogStore provides database operations for gate access records.
type AccessLogStore interface {
	Insert(entry *models.AccessLog) error
	// GetBetween retrieves records in [from, to), newest first, for reporting.
	GetBetween(from, to time.Time) ([]*models.AccessLog, error)
	GetByGuard(guardID uuid.UUID, limit int) ([]*models.AccessLog, error)
}

type postgresAccessLogStore struct {
	db *sqlx.DB
}

// NewAccessLogStore creates a new access log store.
func NewAccessLogStore(dbconn *sqlx.DB) AccessLogStore {
	return &postgresAccessLogStore{db: dbconn}
}

func (s *postgresAccessLogStore) Insert(entry *models.AccessLog) error {
	stmt := `
	INSERT INTO access_logs (guard_id, person_name, document_id, vehicle, plate, direction, note, photo_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at;
	`
	row := s.db.QueryRow(stmt, entry.GuardID, entry.PersonName, entry.DocumentID,
		entry.Vehicle, entry.Plate, entry.Direction, entry.Note, entry.PhotoURL)
	return row.Scan(&entry.ID, &entry.CreatedAt)
}

func (s *postgresAccessLogStore) GetBetween(from, to time.Time) ([]*models.AccessLog, error) {
	query := selectAccessLogs + ` WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC;`
	entries := []*models.AccessLog{}
	err := s.db.Select(&entries, query, from, to)
	if err == sql.ErrNoRows {
		return []*models.AccessLog{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *postgresAccessLogStore) GetByGuard(guardID uuid.UUID, limit int) ([]*models.AccessLog, error) {
	query := selectAccessLogs + ` WHERE guard_id = $1 ORDER BY created_at DESC LIMIT $2;`
	entries := []*models.AccessLog{}
	err := s.db.Select(&entries, query, guardID, limit)
	if err == sql.ErrNoRows {
		return []*models.AccessLog{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
