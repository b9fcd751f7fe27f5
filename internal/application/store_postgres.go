package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"lendflow/pkg/platform/sentinel"
)

// PostgresStore persists each aggregate as a JSON document, mirroring how the
// aggregate travels over the API: the whole snapshot is the unit of write.
// Creation order is preserved by a serial column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed registry. The schema is
// expected to exist (see migrations/001_applications.sql).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, app *Application) error {
	doc, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO applications (id, created_at, doc) VALUES ($1, $2, $3)`,
		app.ID, app.CreatedAt, doc)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Application, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM applications WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return unmarshalApplication(doc)
}

func (s *PostgresStore) Save(ctx context.Context, app *Application) error {
	doc, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET doc = $2 WHERE id = $1`, app.ID, doc)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM applications ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		app, err := unmarshalApplication(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

func unmarshalApplication(doc []byte) (*Application, error) {
	var app Application
	if err := json.Unmarshal(doc, &app); err != nil {
		return nil, fmt.Errorf("unmarshal application: %w", err)
	}
	return &app, nil
}
