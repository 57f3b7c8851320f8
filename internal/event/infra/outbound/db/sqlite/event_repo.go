package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/davicafu/eventify/internal/event/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
)

// EventRepoSQLite implementa EventRepository para despliegues locales.
type EventRepoSQLite struct {
	db *sql.DB
}

func NewEventRepoSQLite(db *sql.DB) *EventRepoSQLite {
	return &EventRepoSQLite{db: db}
}

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,created_at,processed)
		 VALUES (?,?,?,?,?,?,0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// Create inserta evento de catálogo y evento outbox en transacción
func (r *EventRepoSQLite) Create(ctx context.Context, e *domain.Event, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO events (id,title,description,location,image_url,price,is_free,starts_at,ends_at,organizer_id,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID.String(), e.Title, e.Description, e.Location, e.ImageURL, e.Price, e.IsFree,
		e.StartsAt, e.EndsAt, e.OrganizerID, e.CreatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			err = domain.ErrEventAlreadyExists
		}
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *EventRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `SELECT id, title, description, location, image_url, price, is_free, starts_at, ends_at, organizer_id, created_at
		FROM events WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	return scanEvent(row.Scan)
}

func scanEvent(scan func(dest ...any) error) (*domain.Event, error) {
	var e domain.Event
	var idStr string
	if err := scan(&idStr, &e.Title, &e.Description, &e.Location, &e.ImageURL, &e.Price, &e.IsFree,
		&e.StartsAt, &e.EndsAt, &e.OrganizerID, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	e.ID = parsedID

	return &e, nil
}

func (r *EventRepoSQLite) List(ctx context.Context, f domain.EventFilter) ([]*domain.Event, error) {
	var events []*domain.Event
	var args []interface{}
	var conditions []string

	if f.Title != nil {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+*f.Title+"%")
	}
	if f.OrganizerID != nil {
		conditions = append(conditions, "organizer_id = ?")
		args = append(args, *f.OrganizerID)
	}
	if f.OnlyFree {
		conditions = append(conditions, "is_free = 1")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT id, title, description, location, image_url, price, is_free, starts_at, ends_at, organizer_id, created_at
		FROM events %s ORDER BY starts_at LIMIT ? OFFSET ?`, where)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// InitSQLite crea la tabla events si no existe. La tabla outbox la crea el
// repo de usuarios (es compartida).
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS events (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            location TEXT NOT NULL,
            image_url TEXT NOT NULL,
            price TEXT NOT NULL,
            is_free BOOLEAN NOT NULL DEFAULT 0,
            starts_at DATETIME NOT NULL,
            ends_at DATETIME NOT NULL,
            organizer_id TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )
    `)
	return err
}

// Verificación estática
var _ domain.EventRepository = (*EventRepoSQLite)(nil)
