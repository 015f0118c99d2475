package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/australsec/opswatch/pkg/models"
)

// IncidentStore provides database operations for guard incident reports.
type IncidentStore interface {
	Insert(incident *models.Incident) error
	GetAll(limit int) ([]*models.Incident, error)
}

type postgresIncidentStore struct {
	db *sqlx.DB
}

// NewIncidentStore creates a new incident store.
func NewIncidentStore(dbconn *sqlx.DB) IncidentStore {
	return &postgresIncidentStore{db: dbconn}
}

func (s *postgresIncidentStore) Insert(incident *models.Incident) error {
	stmt := `
	INSERT INTO incidents (id, guard_id, description, priority, photo_url)
	VALUES (:id, :guard_id, :description, :priority, :photo_url);
	`
	_, err := s.db.NamedExec(stmt, incident)
	return err
}

func (s *postgresIncidentStore) GetAll(limit int) ([]*models.Incident, error) {
	query := `SELECT * FROM incidents ORDER BY created_at DESC LIMIT $1;`
	incidents := []*models.Incident{}
	err := s.db.Select(&incidents, query, limit)
	if err == sql.ErrNoRows {
		return []*models.Incident{}, nil
	}
	if err != nil {
		return nil, err
	}
	return incidents, nil
}
