package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/australsec/opswatch/pkg/models"
)

// MessageStore provides database operations for console messages.
type MessageStore interface {
	// Insert writes a new message and fills in its server-assigned id
	// and creation time.
	Insert(msg *models.Message) error
	// GetAllDesc retrieves messages in reverse chronological order.
	// A limit of 0 retrieves everything.
	GetAllDesc(limit int) ([]*models.Message, error)
	GetByID(id int64) (*models.Message, error)
	// MarkRead sets is_read on one message. Marking an already-read
	// message is a no-op.
	MarkRead(id int64) error
}

type postgresMessageStore struct {
	db *sqlx.DB
}

// NewMessageStore creates a new message store.
func NewMessageStore(dbconn *sqlx.DB) MessageStore {
	return &postgresMessageStore{db: dbconn}
}

func (s *postgresMessageStore) Insert(msg *models.Message) error {
	stmt := `
	INSERT INTO messages (title, body, sender_role, sender_id, recipient_target, priority, is_read)
	VALUES ($1, $2, $3, $4, $5, $6, false)
	RETURNING id, created_at;
	`
	row := s.db.QueryRow(stmt, msg.Title, msg.Body, msg.SenderRole, msg.SenderID, msg.RecipientTarget, msg.Priority)
	return row.Scan(&msg.ID, &msg.CreatedAt)
}

func (s *postgresMessageStore) GetAllDesc(limit int) ([]*models.Message, error) {
	query := `SELECT * FROM messages ORDER BY id DESC`
	msgs := []*models.Message{}
	var err error
	if limit > 0 {
		err = s.db.Select(&msgs, query+" LIMIT $1;", limit)
	} else {
		err = s.db.Select(&msgs, query+";")
	}
	if err == sql.ErrNoRows {
		return []*models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *postgresMessageStore) GetByID(id int64) (*models.Message, error) {
	query := `SELECT * FROM messages WHERE id = $1;`
	var msg models.Message
	err := s.db.Get(&msg, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *postgresMessageStore) MarkRead(id int64) error {
	stmt := `UPDATE messages SET is_read = true WHERE id = $1;`
	_, err := s.db.Exec(stmt, id)
	return err
}
