package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/eventify/internal/order/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
)

type OrderRepoPostgres struct {
	db *sql.DB
}

func NewOrderRepoPostgres(db *sql.DB) *OrderRepoPostgres {
	return &OrderRepoPostgres{db: db}
}

// ------------------ Helper DRY para insertar en outbox ------------------

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, false)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ------------------ CRUD + Outbox ------------------

// Create inserta orden y evento en transacción
func (r *OrderRepoPostgres) Create(ctx context.Context, o *domain.Order, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, payment_ref, event_id, buyer_id, total_amount, buyer_email, event_title, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.PaymentRef, o.EventID, o.BuyerID, o.TotalAmount, o.BuyerEmail, o.EventTitle, o.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err := insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// ------------------ Lectura ------------------

func (r *OrderRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, payment_ref, event_id, buyer_id, total_amount, buyer_email, event_title, created_at
		FROM orders WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)

	var o domain.Order
	var idStr, eventIDStr string
	if err := row.Scan(&idStr, &o.PaymentRef, &eventIDStr, &o.BuyerID, &o.TotalAmount, &o.BuyerEmail, &o.EventTitle, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	o.ID, _ = uuid.Parse(idStr)
	o.EventID, _ = uuid.Parse(eventIDStr)

	return &o, nil
}

func (r *OrderRepoPostgres) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	query := `SELECT id, payment_ref, event_id, buyer_id, total_amount, buyer_email, event_title, created_at
		FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var idStr, eventIDStr string
		if err := rows.Scan(&idStr, &o.PaymentRef, &eventIDStr, &o.BuyerID, &o.TotalAmount, &o.BuyerEmail, &o.EventTitle, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.ID, _ = uuid.Parse(idStr)
		o.EventID, _ = uuid.Parse(eventIDStr)
		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

// ---------------- Patrón Outbox en Eventos-----------------

func (r *OrderRepoPostgres) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		 FROM outbox
		 WHERE processed = false
		 ORDER BY created_at
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var idStr, aggregateType, aggregateID, eventType string
		var payloadBytes []byte
		var createdAt time.Time

		if err := rows.Scan(&idStr, &aggregateType, &aggregateID, &eventType, &payloadBytes, &createdAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
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

func (r *OrderRepoPostgres) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET processed = true WHERE id = $1`, id,
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

// ------------------ Inicialización ------------------

func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		payment_ref TEXT NOT NULL,
		event_id UUID NOT NULL,
		buyer_id TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		buyer_email TEXT NOT NULL,
		event_title TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT FALSE
	)`)
	return err
}

// Verificación estática
var _ domain.OrderRepository = (*OrderRepoPostgres)(nil)
