package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stoplist-telegram/logging"
	"stoplist-telegram/models"
)

// stateDocumentsSchema matches migrations/001_state_documents.sql. It is also
// applied by CreateFresh so a database nobody migrated can still be repaired.
const stateDocumentsSchema = `
	CREATE TABLE IF NOT EXISTS state_documents (
		id              TEXT PRIMARY KEY,
		stop_list       JSONB NOT NULL DEFAULT '[]'::jsonb,
		delivery_status JSONB NOT NULL DEFAULT '{"disabled_until": null}'::jsonb,
		owner           TEXT NOT NULL DEFAULT current_user,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PgRunner is the subset of *pgxpool.Pool the store needs.
type PgRunner interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the state as one row of state_documents, so several
// bot instances pointed at the same database share it.
type PostgresStore struct {
	db  PgRunner
	ids DocumentIDSink
	log logging.Logger

	mu sync.RWMutex
	id string
}

func NewPostgresStore(db PgRunner, documentID string, ids DocumentIDSink, log logging.Logger) *PostgresStore {
	if log == nil {
		log = logging.Discard()
	}
	return &PostgresStore{db: db, ids: ids, log: log, id: documentID}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) DocumentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *PostgresStore) documentID() (string, error) {
	id := s.DocumentID()
	if id == "" {
		return "", fmt.Errorf("%w: STATE_DOCUMENT_ID is not set", ErrRemoteNotFound)
	}
	return id, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return err != nil && strings.Contains(err.Error(), "does not exist")
}

// classify maps a database error onto the remote taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows), isUndefinedTable(err):
		return fmt.Errorf("%w: %v", ErrRemoteNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
}

func (s *PostgresStore) Fetch(ctx context.Context) (models.State, error) {
	id, err := s.documentID()
	if err != nil {
		return models.State{}, err
	}
	var stopJSON, deliveryJSON []byte
	err = s.db.QueryRow(ctx, `
		SELECT stop_list, delivery_status FROM state_documents WHERE id = $1`,
		id,
	).Scan(&stopJSON, &deliveryJSON)
	if err != nil {
		return models.State{}, classify(err)
	}

	st := models.DefaultState()
	var list models.StopList
	if err := json.Unmarshal(stopJSON, &list); err != nil {
		s.log.Warn(ctx, "stop_list column unparsable, using default", "document_id", id, "err", err)
	} else if list != nil {
		st.StopList = list.Dedup()
	}
	var d models.DeliveryStatus
	if err := json.Unmarshal(deliveryJSON, &d); err != nil {
		s.log.Warn(ctx, "delivery_status column unparsable, using default", "document_id", id, "err", err)
	} else {
		st.Delivery = d
	}
	return st, nil
}

// Store overwrites both columns in one statement. Rows owned by another
// database role are left alone and reported as forbidden.
func (s *PostgresStore) Store(ctx context.Context, st models.State) error {
	id, err := s.documentID()
	if err != nil {
		return err
	}
	list := st.StopList
	if list == nil {
		list = models.StopList{}
	}
	stopJSON, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode stop list: %w", err)
	}
	deliveryJSON, err := json.Marshal(st.Delivery)
	if err != nil {
		return fmt.Errorf("encode delivery status: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE state_documents
		SET stop_list = $2::jsonb, delivery_status = $3::jsonb, updated_at = now()
		WHERE id = $1 AND owner = current_user`,
		id, string(stopJSON), string(deliveryJSON),
	)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var owner string
	err = s.db.QueryRow(ctx, `SELECT owner FROM state_documents WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		return classify(err)
	}
	return fmt.Errorf("%w: document %s is owned by %s", ErrRemoteForbidden, id, owner)
}

func (s *PostgresStore) VerifyOwnership(ctx context.Context) (bool, string) {
	id, err := s.documentID()
	if err != nil {
		return false, err.Error()
	}
	var owner, current string
	err = s.db.QueryRow(ctx, `
		SELECT owner, current_user::text FROM state_documents WHERE id = $1`,
		id,
	).Scan(&owner, &current)
	if err != nil {
		return false, fmt.Sprintf("document %s is not accessible: %v", id, classify(err))
	}
	if owner != current {
		return false, fmt.Sprintf("document %s belongs to role %q, not %q", id, owner, current)
	}
	return true, "state document access verified"
}

// CreateFresh makes sure the table exists and inserts a new document seeded
// with empty state.
func (s *PostgresStore) CreateFresh(ctx context.Context) (string, error) {
	if _, err := s.db.Exec(ctx, stateDocumentsSchema); err != nil {
		return "", classify(err)
	}
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO state_documents (id, stop_list, delivery_status, owner)
		VALUES ($1, '[]'::jsonb, '{"disabled_until": null}'::jsonb, current_user)`,
		id,
	)
	if err != nil {
		return "", classify(err)
	}

	s.mu.Lock()
	s.id = id
	s.mu.Unlock()

	if s.ids != nil {
		if err := s.ids.SaveDocumentID(id); err != nil {
			s.log.Warn(ctx, "new document id not persisted; set it manually", "document_id", id, "err", err)
		}
	}
	return id, nil
}
