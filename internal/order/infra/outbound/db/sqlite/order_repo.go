package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/davicafu/eventify/internal/order/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	userSQLite "github.com/davicafu/eventify/internal/user/infra/outbound/db/sqlite"
)

// OrderRepoSQLite implementa OrderRepository para despliegues locales.
type OrderRepoSQLite struct {
	db *sql.DB
}

func NewOrderRepoSQLite(db *sql.DB) *OrderRepoSQLite {
	return &OrderRepoSQLite{db: db}
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

// Create inserta orden y evento en transacción
func (r *OrderRepoSQLite) Create(ctx context.Context, o *domain.Order, evt sharedDomain.OutboxEvent) error {
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
		`INSERT INTO orders (id,payment_ref,event_id,buyer_id,total_amount,buyer_email,event_title,created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		o.ID.String(), o.PaymentRef, o.EventID.String(), o.BuyerID, o.TotalAmount, o.BuyerEmail, o.EventTitle, o.CreatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			err = domain.ErrOrderAlreadyExists
		}
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, payment_ref, event_id, buyer_id, total_amount, buyer_email, event_title, created_at
		FROM orders WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	return scanOrder(row.Scan)
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var o domain.Order
	var idStr, eventIDStr string
	if err := scan(&idStr, &o.PaymentRef, &eventIDStr, &o.BuyerID, &o.TotalAmount, &o.BuyerEmail, &o.EventTitle, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	o.ID = parsedID

	parsedEventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	o.EventID = parsedEventID

	return &o, nil
}

func (r *OrderRepoSQLite) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	query := `SELECT id, payment_ref, event_id, buyer_id, total_amount, buyer_email, event_title, created_at
		FROM orders WHERE buyer_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea la tabla orders si no existe. La tabla outbox la crea la
// inicialización del repo de usuarios: es única por base de datos.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            payment_ref TEXT NOT NULL,
            event_id TEXT NOT NULL,
            buyer_id TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            buyer_email TEXT NOT NULL,
            event_title TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )
    `)
	return err
}

// ---------------- Patrón Outbox en Eventos-----------------

func (r *OrderRepoSQLite) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	return userSQLite.FetchPendingOutbox(ctx, r.db, limit)
}

func (r *OrderRepoSQLite) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	return userSQLite.MarkOutboxProcessed(ctx, r.db, id)
}

// Verificación estática
var _ domain.OrderRepository = (*OrderRepoSQLite)(nil)
