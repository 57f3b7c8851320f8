package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/davicafu/eventify/internal/user/domain"
)

// UserRepoSQLite implementa UserRepository para despliegues locales.
type UserRepoSQLite struct {
	db *sql.DB
}

func NewUserRepoSQLite(db *sql.DB) *UserRepoSQLite {
	return &UserRepoSQLite{db: db}
}

// ------------------ Helper DRY para insertar en outbox ------------------

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

// ------------------ Métodos ------------------

// Create inserta usuario y evento en transacción
func (r *UserRepoSQLite) Create(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
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
		`INSERT INTO users (id,clerk_id,email,username,first_name,last_name,photo,created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.ID.String(), u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName, u.Photo, u.CreatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			err = domain.ErrUserAlreadyExists
		}
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza el perfil y crea evento Outbox en transacción
func (r *UserRepoSQLite) Update(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET username=?, first_name=?, last_name=?, photo=? WHERE clerk_id=?`,
		u.Username, u.FirstName, u.LastName, u.Photo, u.ClerkID,
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = domain.ErrUserNotFound
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteByClerkID elimina usuario y crea evento Outbox en transacción.
// Devuelve el usuario eliminado.
func (r *UserRepoSQLite) DeleteByClerkID(ctx context.Context, clerkID string, evt sharedDomain.OutboxEvent) (*domain.User, error) {
	user, err := r.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE clerk_id=?`, clerkID)
	if err != nil {
		return nil, err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = domain.ErrUserNotFound
		return nil, err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepoSQLite) GetByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	query := `SELECT id, clerk_id, email, username, first_name, last_name, photo, created_at
		FROM users WHERE clerk_id = ?`
	row := r.db.QueryRowContext(ctx, query, clerkID)

	return scanUser(row.Scan)
}

func scanUser(scan func(dest ...any) error) (*domain.User, error) {
	var u domain.User
	var idStr string
	if err := scan(&idStr, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Photo, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	u.ID = parsedID

	return &u, nil
}

func (r *UserRepoSQLite) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var users []*domain.User
	var args []interface{}
	var conditions []string

	if f.ClerkID != nil {
		conditions = append(conditions, "clerk_id = ?")
		args = append(args, *f.ClerkID)
	}
	if f.Email != nil {
		conditions = append(conditions, "email = ?")
		args = append(args, *f.Email)
	}
	if f.Username != nil {
		conditions = append(conditions, "username LIKE ?")
		args = append(args, "%"+*f.Username+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at DESC"
	if f.Sort.Field != "" {
		dir := "ASC"
		if f.Sort.Desc {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", f.Sort.Field, dir)
	}

	limit := f.Pagination.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Pagination.Offset

	query := fmt.Sprintf(`SELECT id, clerk_id, email, username, first_name, last_name, photo, created_at
		FROM users %s ORDER BY %s LIMIT ? OFFSET ?`, where, orderBy)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea las tablas users y outbox si no existen
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            clerk_id TEXT UNIQUE NOT NULL,
            email TEXT NOT NULL,
            username TEXT NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            photo TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS outbox (
            id TEXT PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT 0
        )
    `)
	return err
}

// ---------------- Patrón Outbox en Eventos-----------------

// FetchPendingOutbox obtiene eventos pendientes
func (r *UserRepoSQLite) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	return FetchPendingOutbox(ctx, r.db, limit)
}

// MarkOutboxProcessed marca un evento como procesado
func (r *UserRepoSQLite) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	return MarkOutboxProcessed(ctx, r.db, id)
}

// FetchPendingOutbox es compartido por todos los repos SQLite: la tabla outbox
// es única por base de datos.
func FetchPendingOutbox(ctx context.Context, db *sql.DB, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		 FROM outbox
		 WHERE processed = 0
		 ORDER BY created_at
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var idStr, aggregateType, aggregateID, eventType, payloadStr string
		var createdAt time.Time

		if err := rows.Scan(&idStr, &aggregateType, &aggregateID, &eventType, &payloadStr, &createdAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON payload in outbox row %s: %w", parsedID, err)
		}

		events = append(events, sharedDomain.OutboxEvent{
			ID:            parsedID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       payload,
			CreatedAt:     createdAt,
			Processed:     false,
		})
	}

	return events, rows.Err()
}

func MarkOutboxProcessed(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	res, err := db.ExecContext(ctx,
		`UPDATE outbox SET processed = 1 WHERE id = ?`,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected for outbox event %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("no outbox event found with id %s", id)
	}

	return nil
}

// Verificación estática
var _ domain.UserRepository = (*UserRepoSQLite)(nil)
