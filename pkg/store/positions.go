package store

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/australsec/opswatch/pkg/models"
)

// PositionStore provides database operations for unit position reports.
type PositionStore interface {
	// Upsert writes a unit's latest report, replacing any previous row
	// for the same unit.
	Upsert(report *models.PositionReport) error
	// GetByUnitID retrieves a single unit's last report.
	GetByUnitID(unitID uuid.UUID) (*models.PositionReport, error)
	// GetAuthorized retrieves the last report of every unit whose
	// identity is an active guard or control operator. Reports from
	// unknown or inactive identities are silently excluded.
	GetAuthorized() ([]*models.PositionReport, error)
	// Delete removes a unit's row, typically on logout.
	Delete(unitID uuid.UUID) error
}

type postgresPositionStore struct {
	db *sqlx.DB
}

// NewPositionStore creates a new position store.
func NewPositionStore(dbconn *sqlx.DB) PositionStore {
	return &postgresPositionStore{db: dbconn}
}

func (s *postgresPositionStore) Upsert(report *models.PositionReport) error {
	stmt := `
	INSERT INTO positions (unit_id, display_name, latitude, longitude, status_tag, last_seen)
	VALUES (:unit_id, :display_name, :latitude, :longitude, :status_tag, :last_seen)
	ON CONFLICT (unit_id)
	DO UPDATE SET
		display_name = :display_name,
		latitude = :latitude,
		longitude = :longitude,
		status_tag = :status_tag,
		last_seen = :last_seen
	;`
	_, err := s.db.NamedExec(stmt, report)
	return err
}

func (s *postgresPositionStore) GetByUnitID(unitID uuid.UUID) (*models.PositionReport, error) {
	query := `SELECT * FROM positions WHERE unit_id = $1;`
	var report models.PositionReport
	err := s.db.Get(&report, query, unitID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *postgresPositionStore) GetAuthorized() ([]*models.PositionReport, error) {
	query := `
	SELECT p.*
	FROM positions p
	JOIN identities i ON i.id = p.unit_id
	WHERE i.role IN ($1, $2) AND i.status = $3;
	`
	reports := []*models.PositionReport{}
	err := s.db.Select(&reports, query, models.RoleGuard, models.RoleControl, models.StatusActive)
	if err == sql.ErrNoRows {
		return []*models.PositionReport{}, nil
	}
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *postgresPositionStore) Delete(unitID uuid.UUID) error {
	stmt := `DELETE FROM positions WHERE unit_id = $1;`
	_, err := s.db.Exec(stmt, unitID)
	return err
}
