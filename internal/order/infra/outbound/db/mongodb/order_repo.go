package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	orderDomain "github.com/davicafu/eventify/internal/order/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// OrderRepoMongoDB implementa OrderRepository para MongoDB.
type OrderRepoMongoDB struct {
	client     *mongo.Client
	dbName     string
	ordersColl *mongo.Collection
	outboxColl *mongo.Collection
}

func NewOrderRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*OrderRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &OrderRepoMongoDB{
		client:     client,
		dbName:     dbName,
		ordersColl: db.Collection("orders"),
		outboxColl: db.Collection("outbox"),
	}, nil
}

type mongoOrder struct {
	ID          uuid.UUID `bson:"_id"`
	PaymentRef  string    `bson:"paymentRef"`
	EventID     uuid.UUID `bson:"eventId"`
	BuyerID     string    `bson:"buyerId"`
	TotalAmount string    `bson:"totalAmount"`
	BuyerEmail  string    `bson:"buyerEmail"`
	EventTitle  string    `bson:"eventTitle"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func toMongoOrder(o *orderDomain.Order) mongoOrder {
	return mongoOrder{
		ID:          o.ID,
		PaymentRef:  o.PaymentRef,
		EventID:     o.EventID,
		BuyerID:     o.BuyerID,
		TotalAmount: o.TotalAmount,
		BuyerEmail:  o.BuyerEmail,
		EventTitle:  o.EventTitle,
		CreatedAt:   o.CreatedAt,
	}
}

func fromMongoOrder(m mongoOrder) *orderDomain.Order {
	return &orderDomain.Order{
		ID:          m.ID,
		PaymentRef:  m.PaymentRef,
		EventID:     m.EventID,
		BuyerID:     m.BuyerID,
		TotalAmount: m.TotalAmount,
		BuyerEmail:  m.BuyerEmail,
		EventTitle:  m.EventTitle,
		CreatedAt:   m.CreatedAt,
	}
}

func (r *OrderRepoMongoDB) Create(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.ordersColl.InsertOne(sessCtx, toMongoOrder(o)); err != nil {
			return nil, err
		}
		mo := bson.M{
			"_id":           evt.ID,
			"aggregateType": evt.AggregateType,
			"aggregateId":   evt.AggregateID,
			"eventType":     evt.EventType,
			"payload":       string(payloadBytes),
			"createdAt":     evt.CreatedAt,
			"processed":     evt.Processed,
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if mongo.IsDuplicateKeyError(err) {
		return orderDomain.ErrOrderAlreadyExists
	}
	return err
}

func (r *OrderRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	var m mongoOrder
	err := r.ordersColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orderDomain.ErrOrderNotFound
		}
		return nil, err
	}
	return fromMongoOrder(m), nil
}

func (r *OrderRepoMongoDB) ListByBuyer(ctx context.Context, buyerID string) ([]*orderDomain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.ordersColl.Find(ctx, bson.M{"buyerId": buyerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*orderDomain.Order
	for cursor.Next(ctx) {
		var m mongoOrder
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		orders = append(orders, fromMongoOrder(m))
	}

	return orders, cursor.Err()
}

func (r *OrderRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.outboxColl.Find(ctx, bson.M{"processed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var m struct {
			ID            uuid.UUID `bson:"_id"`
			AggregateType string    `bson:"aggregateType"`
			AggregateID   string    `bson:"aggregateId"`
			EventType     string    `bson:"eventType"`
			Payload       string    `bson:"payload"`
			CreatedAt     time.Time `bson:"createdAt"`
		}
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}

		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON payload in outbox doc %s: %w", m.ID, err)
		}

		events = append(events, sharedDomain.OutboxEvent{
			ID:            m.ID,
			AggregateType: m.AggregateType,
			AggregateID:   m.AggregateID,
			EventType:     m.EventType,
			Payload:       payload,
			CreatedAt:     m.CreatedAt,
		})
	}

	return events, cursor.Err()
}

func (r *OrderRepoMongoDB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.outboxColl.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no outbox event found with id %s", id)
	}
	return nil
}

// Verificación estática
var _ orderDomain.OrderRepository = (*OrderRepoMongoDB)(nil)
