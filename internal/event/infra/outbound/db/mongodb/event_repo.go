package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	eventDomain "github.com/davicafu/eventify/internal/event/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// EventRepoMongoDB implementa EventRepository para MongoDB.
type EventRepoMongoDB struct {
	client     *mongo.Client
	dbName     string
	eventsColl *mongo.Collection
	outboxColl *mongo.Collection
}

func NewEventRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*EventRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &EventRepoMongoDB{
		client:     client,
		dbName:     dbName,
		eventsColl: db.Collection("events"),
		outboxColl: db.Collection("outbox"),
	}, nil
}

type mongoEvent struct {
	ID          uuid.UUID `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Location    string    `bson:"location"`
	ImageURL    string    `bson:"imageUrl"`
	Price       string    `bson:"price"`
	IsFree      bool      `bson:"isFree"`
	StartsAt    time.Time `bson:"startsAt"`
	EndsAt      time.Time `bson:"endsAt"`
	OrganizerID string    `bson:"organizerId"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func toMongoEvent(e *eventDomain.Event) mongoEvent {
	return mongoEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		ImageURL:    e.ImageURL,
		Price:       e.Price,
		IsFree:      e.IsFree,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt,
	}
}

func fromMongoEvent(m mongoEvent) *eventDomain.Event {
	return &eventDomain.Event{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Location:    m.Location,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		IsFree:      m.IsFree,
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
		OrganizerID: m.OrganizerID,
		CreatedAt:   m.CreatedAt,
	}
}

func (r *EventRepoMongoDB) Create(ctx context.Context, e *eventDomain.Event, evt sharedDomain.OutboxEvent) error {
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
		if _, err := r.eventsColl.InsertOne(sessCtx, toMongoEvent(e)); err != nil {
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
		return eventDomain.ErrEventAlreadyExists
	}
	return err
}

func (r *EventRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*eventDomain.Event, error) {
	var m mongoEvent
	err := r.eventsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, eventDomain.ErrEventNotFound
		}
		return nil, err
	}
	return fromMongoEvent(m), nil
}

func (r *EventRepoMongoDB) List(ctx context.Context, f eventDomain.EventFilter) ([]*eventDomain.Event, error) {
	filter := bson.M{}
	if f.Title != nil {
		filter["title"] = bson.M{"$regex": *f.Title, "$options": "i"}
	}
	if f.OrganizerID != nil {
		filter["organizerId"] = *f.OrganizerID
	}
	if f.OnlyFree {
		filter["isFree"] = true
	}

	limit := int64(f.Limit)
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(int64(f.Offset)).
		SetSort(bson.D{{Key: "startsAt", Value: 1}})

	cursor, err := r.eventsColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*eventDomain.Event
	for cursor.Next(ctx) {
		var m mongoEvent
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		events = append(events, fromMongoEvent(m))
	}

	return events, cursor.Err()
}

// Verificación estática
var _ eventDomain.EventRepository = (*EventRepoMongoDB)(nil)
