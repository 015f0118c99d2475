package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"

	"github.com/australsec/opswatch/pkg/models"
)

var selectIdentities = `SELECT i.* FROM identities i`

// RoleStatus is the cached authorization view of one identity.
type RoleStatus struct {
	Role   string
	Status string
}

// IdentityStore provides database operations for console accounts.
type IdentityStore interface {
	GetByID(id uuid.UUID) (*models.Identity, error)
	GetByUserName(username string) (*models.Identity, error)
	GetAll() ([]*models.Identity, error)
	// GetActiveGuards retrieves active guard identities, ordered by
	// display name. Used for thread derivation on the control console.
	GetActiveGuards() ([]*models.Identity, error)
	// GetRoleStatus returns the role and status for an identity,
	// served from a short-lived cache.
	GetRoleStatus(id uuid.UUID) (*RoleStatus, error)
	Add(identity *models.Identity) error
	Update(identity *models.Identity) error
	SetPassword(id uuid.UUID, passwordHash, salt string) error
	Delete(id uuid.UUID) error
}

type postgresIdentityStore struct {
	db        *sqlx.DB
	roleCache *ttlcache.Cache[uuid.UUID, RoleStatus]
}

// NewIdentityStore creates a new identity store.
func NewIdentityStore(dbconn *sqlx.DB) IdentityStore {
	cache := ttlcache.New[uuid.UUID, RoleStatus](
		ttlcache.WithTTL[uuid.UUID, RoleStatus](15 * time.Minute),
	)
	go cache.Start()
	return &postgresIdentityStore{
		db:        dbconn,
		roleCache: cache,
	}
}

func (s *postgresIdentityStore) GetByID(id uuid.UUID) (*models.Identity, error) {
	query := selectIdentities + " WHERE i.id = $1;"
	var identity models.Identity
	err := s.db.Get(&identity, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *postgresIdentityStore) GetByUserName(username string) (*models.Identity, error) {
	query := selectIdentities + " WHERE i.username = $1;"
	var identity models.Identity
	err := s.db.Get(&identity, query, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *postgresIdentityStore) GetAll() ([]*models.Identity, error) {
	query := selectIdentities + " ORDER BY i.username;"
	identities := []*models.Identity{}
	err := s.db.Select(&identities, query)
	if err == sql.ErrNoRows {
		return []*models.Identity{}, nil
	}
	return identities, err
}

func (s *postgresIdentityStore) GetActiveGuards() ([]*models.Identity, error) {
	query := selectIdentities + " WHERE i.role = $1 AND i.status = $2 ORDER BY i.display_name;"
	identities := []*models.Identity{}
	err := s.db.Select(&identities, query, models.RoleGuard, models.StatusActive)
	if err == sql.ErrNoRows {
		return []*models.Identity{}, nil
	}
	return identities, err
}

func (s *postgresIdentityStore) GetRoleStatus(id uuid.UUID) (*RoleStatus, error) {
	if cached := s.roleCache.Get(id); cached != nil {
		rs := cached.Value()
		return &rs, nil
	}
	slog.Debug("role cache miss, querying database", "identity", id)
	identity, err := s.GetByID(id)
	if err != nil || identity == nil {
		return nil, err
	}
	rs := RoleStatus{Role: identity.Role, Status: identity.Status}
	s.roleCache.Set(id, rs, ttlcache.DefaultTTL)
	return &rs, nil
}

func (s *postgresIdentityStore) Add(identity *models.Identity) error {
	stmt := `
	INSERT INTO identities (id, username, display_name, role, status, password_hash, salt)
	VALUES (:id, :username, :display_name, :role, :status, :password_hash, :salt);
	`
	_, err := s.db.NamedExec(stmt, identity)
	return err
}

func (s *postgresIdentityStore) Update(identity *models.Identity) error {
	stmt := `
	UPDATE identities
	SET username = :username,
	    display_name = :display_name,
	    role = :role,
	    status = :status
	WHERE id = :id;
	`
	_, err := s.db.NamedExec(stmt, identity)
	if err == nil {
		s.roleCache.Delete(identity.ID)
	}
	return err
}

func (s *postgresIdentityStore) SetPassword(id uuid.UUID, passwordHash, salt string) error {
	stmt := `
	UPDATE identities
	SET password_hash = $1, salt = $2
	WHERE id = $3;
	`
	_, err := s.db.Exec(stmt, passwordHash, salt, id)
	return err
}

func (s *postgresIdentityStore) Delete(id uuid.UUID) error {
	stmt := `DELETE FROM identities WHERE id = $1;`
	_, err := s.db.Exec(stmt, id)
	if err == nil {
		s.roleCache.Delete(id)
	}
	return err
}
