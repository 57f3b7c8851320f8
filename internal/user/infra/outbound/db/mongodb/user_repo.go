package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	userDomain "github.com/davicafu/eventify/internal/user/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// UserRepoMongoDB implementa UserRepository sobre MongoDB, el directorio
// primario de la aplicación.
type UserRepoMongoDB struct {
	client     *mongo.Client
	dbName     string
	usersColl  *mongo.Collection
	outboxColl *mongo.Collection
}

// NewUserRepoMongoDB construye el repositorio y asegura el índice único por
// clerk_id: es ese índice el que decide el efecto neto de un webhook reentregado.
func NewUserRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*UserRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	usersColl := db.Collection("users")

	_, err := usersColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clerkId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create clerkId index: %w", err)
	}

	return &UserRepoMongoDB{
		client:     client,
		dbName:     dbName,
		usersColl:  usersColl,
		outboxColl: db.Collection("outbox"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoUser struct {
	ID        uuid.UUID `bson:"_id"`
	ClerkID   string    `bson:"clerkId"`
	Email     string    `bson:"email"`
	Username  string    `bson:"username"`
	FirstName string    `bson:"firstName"`
	LastName  string    `bson:"lastName"`
	Photo     string    `bson:"photo"`
	CreatedAt time.Time `bson:"createdAt"`
}

type mongoOutboxEvent struct {
	ID            uuid.UUID `bson:"_id"`
	AggregateType string    `bson:"aggregateType"`
	AggregateID   string    `bson:"aggregateId"`
	EventType     string    `bson:"eventType"`
	Payload       string    `bson:"payload"` // JSON serializado, como en SQLite
	CreatedAt     time.Time `bson:"createdAt"`
	Processed     bool      `bson:"processed"`
}

func toMongoUser(u *userDomain.User) mongoUser {
	return mongoUser{
		ID:        u.ID,
		ClerkID:   u.ClerkID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
	}
}

func fromMongoUser(m mongoUser) *userDomain.User {
	return &userDomain.User{
		ID:        m.ID,
		ClerkID:   m.ClerkID,
		Email:     m.Email,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Photo:     m.Photo,
		CreatedAt: m.CreatedAt,
	}
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) (mongoOutboxEvent, error) {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return mongoOutboxEvent{}, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	return mongoOutboxEvent{
		ID:            evt.ID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       string(payloadBytes),
		CreatedAt:     evt.CreatedAt,
		Processed:     evt.Processed,
	}, nil
}

// --- CRUD Transaccional ---

func (r *UserRepoMongoDB) Create(ctx context.Context, u *userDomain.User, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	mo, err := toMongoOutboxEvent(evt)
	if err != nil {
		return err
	}

	// La transacción asegura que ambas inserciones (usuario y evento) sean atómicas.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.usersColl.InsertOne(sessCtx, toMongoUser(u)); err != nil {
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if mongo.IsDuplicateKeyError(err) {
		return userDomain.ErrUserAlreadyExists
	}
	return err
}

func (r *UserRepoMongoDB) GetByClerkID(ctx context.Context, clerkID string) (*userDomain.User, error) {
	var m mongoUser
	err := r.usersColl.FindOne(ctx, bson.M{"clerkId": clerkID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, err
	}
	return fromMongoUser(m), nil
}

func (r *UserRepoMongoDB) Update(ctx context.Context, u *userDomain.User, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	mo, err := toMongoOutboxEvent(evt)
	if err != nil {
		return err
	}

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		update := bson.M{"$set": bson.M{
			"username":  u.Username,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
			"photo":     u.Photo,
		}}

		res, err := r.usersColl.UpdateOne(sessCtx, bson.M{"clerkId": u.ClerkID}, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, userDomain.ErrUserNotFound
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *UserRepoMongoDB) DeleteByClerkID(ctx context.Context, clerkID string, evt sharedDomain.OutboxEvent) (*userDomain.User, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	mo, err := toMongoOutboxEvent(evt)
	if err != nil {
		return nil, err
	}

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var m mongoUser
		if err := r.usersColl.FindOneAndDelete(sessCtx, bson.M{"clerkId": clerkID}).Decode(&m); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, userDomain.ErrUserNotFound
			}
			return nil, err
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, mo); err != nil {
			return nil, err
		}
		return fromMongoUser(m), nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*userDomain.User), nil
}

func (r *UserRepoMongoDB) List(ctx context.Context, f userDomain.UserFilter) ([]*userDomain.User, error) {
	filter := bson.M{}
	if f.ClerkID != nil {
		filter["clerkId"] = *f.ClerkID
	}
	if f.Email != nil {
		filter["email"] = *f.Email
	}
	if f.Username != nil {
		filter["username"] = bson.M{"$regex": *f.Username, "$options": "i"}
	}

	limit := int64(f.Pagination.Limit)
	if limit <= 0 {
		limit = 50
	}

	sortField := "createdAt"
	if f.Sort.Field != "" && f.Sort.Field != "created_at" {
		sortField = f.Sort.Field
	}
	sortDir := 1
	if f.Sort.Desc {
		sortDir = -1
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(int64(f.Pagination.Offset)).
		SetSort(bson.D{{Key: sortField, Value: sortDir}})

	cursor, err := r.usersColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*userDomain.User
	for cursor.Next(ctx) {
		var m mongoUser
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		users = append(users, fromMongoUser(m))
	}

	return users, cursor.Err()
}

// ---------------- Patrón Outbox en Eventos-----------------

func (r *UserRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
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
		var m mongoOutboxEvent
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
			Processed:     m.Processed,
		})
	}

	return events, cursor.Err()
}

func (r *UserRepoMongoDB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
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
var _ userDomain.UserRepository = (*UserRepoMongoDB)(nil)
