package application

import (
	"context"
	"errors"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/davicafu/eventify/internal/user/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---------------- Fakes en memoria ----------------

type inMemoryUserRepo struct {
	users  map[string]*domain.User // por clerk id
	Outbox []sharedDomain.OutboxEvent
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	if _, ok := r.users[u.ClerkID]; ok {
		return domain.ErrUserAlreadyExists
	}
	copied := *u
	r.users[u.ClerkID] = &copied
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *inMemoryUserRepo) GetByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	u, ok := r.users[clerkID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *inMemoryUserRepo) Update(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	if _, ok := r.users[u.ClerkID]; !ok {
		return domain.ErrUserNotFound
	}
	copied := *u
	r.users[u.ClerkID] = &copied
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *inMemoryUserRepo) DeleteByClerkID(ctx context.Context, clerkID string, evt sharedDomain.OutboxEvent) (*domain.User, error) {
	u, ok := r.users[clerkID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	delete(r.users, clerkID)
	r.Outbox = append(r.Outbox, evt)
	return u, nil
}

func (r *inMemoryUserRepo) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *inMemoryUserRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *inMemoryUserRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	return nil
}

type recordingPusher struct {
	calls []domain.IdentityMetadata
	err   error
}

func (p *recordingPusher) PushUserMetadata(ctx context.Context, clerkID string, md domain.IdentityMetadata) error {
	p.calls = append(p.calls, md)
	return p.err
}

var _ domain.UserRepository = (*inMemoryUserRepo)(nil)
var _ domain.MetadataPusher = (*recordingPusher)(nil)

// ---------------- Tests ----------------

func TestHandleUserCreated_Success(t *testing.T) {
	repo := newInMemoryUserRepo()
	pusher := &recordingPusher{}
	service := NewUserSyncService(repo, nil, pusher, zap.NewNop())

	data := domain.ClerkUserData{
		ID:             "clerk_123",
		EmailAddresses: []domain.ClerkEmail{{EmailAddress: "ana@example.com"}},
		ImageURL:       "https://img.example.com/ana.png",
		FirstName:      "Ana",
		LastName:       "García",
		Username:       "anag",
	}

	user, err := service.HandleUserCreated(context.Background(), data)
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, "clerk_123", user.ClerkID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, uuid.Nil, user.ID)

	// ✅ Verificar que se creó un evento Outbox
	assert.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.UserCreated, repo.Outbox[0].EventType)
	assert.Equal(t, "clerk_123", repo.Outbox[0].AggregateID)

	// ✅ Verificar el push de metadatos {userId, photo}
	assert.Len(t, pusher.calls, 1)
	assert.Equal(t, user.ID.String(), pusher.calls[0].UserID)
	assert.Equal(t, "https://img.example.com/ana.png", pusher.calls[0].Photo)
}

func TestHandleUserCreated_NoEmailAddresses(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	user, err := service.HandleUserCreated(context.Background(), domain.ClerkUserData{ID: "clerk_sin_email"})
	assert.NoError(t, err)
	assert.Equal(t, "", user.Email)
	assert.Equal(t, "", user.Username)
}

func TestHandleUserCreated_MetadataPushFailureDoesNotRevert(t *testing.T) {
	repo := newInMemoryUserRepo()
	pusher := &recordingPusher{err: errors.New("clerk api down")}
	service := NewUserSyncService(repo, nil, pusher, zap.NewNop())

	user, err := service.HandleUserCreated(context.Background(), domain.ClerkUserData{ID: "clerk_abc"})
	assert.NoError(t, err)
	assert.NotNil(t, user)

	// El registro local persiste aunque el push haya fallado
	stored, err := repo.GetByClerkID(context.Background(), "clerk_abc")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestHandleUserCreated_Duplicate(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	_, err := service.HandleUserCreated(context.Background(), domain.ClerkUserData{ID: "clerk_dup"})
	assert.NoError(t, err)

	_, err = service.HandleUserCreated(context.Background(), domain.ClerkUserData{ID: "clerk_dup"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestHandleUserUpdated_DefaultsMissingFieldsToEmpty(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	_, err := service.HandleUserCreated(context.Background(), domain.ClerkUserData{
		ID:             "clerk_upd",
		EmailAddresses: []domain.ClerkEmail{{EmailAddress: "upd@example.com"}},
		Username:       "antiguo",
		FirstName:      "Nombre",
	})
	assert.NoError(t, err)

	// El payload de update llega sin username ni first_name: se escriben vacíos
	updated, err := service.HandleUserUpdated(context.Background(), domain.ClerkUserData{
		ID:       "clerk_upd",
		LastName: "Solo Apellido",
	})
	assert.NoError(t, err)
	assert.Equal(t, "", updated.Username)
	assert.Equal(t, "", updated.FirstName)
	assert.Equal(t, "Solo Apellido", updated.LastName)

	// El email NO se toca en updates
	assert.Equal(t, "upd@example.com", updated.Email)

	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.UserUpdated, repo.Outbox[1].EventType)
}

func TestHandleUserUpdated_NotFound(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	_, err := service.HandleUserUpdated(context.Background(), domain.ClerkUserData{ID: "clerk_missing"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestHandleUserDeleted_ReturnsDeletedUser(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	created, err := service.HandleUserCreated(context.Background(), domain.ClerkUserData{ID: "clerk_del"})
	assert.NoError(t, err)

	deleted, err := service.HandleUserDeleted(context.Background(), "clerk_del")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = repo.GetByClerkID(context.Background(), "clerk_del")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.UserDeleted, repo.Outbox[1].EventType)
}

func TestGetUser_CacheMissFallsBackToRepo(t *testing.T) {
	repo := newInMemoryUserRepo()
	service := NewUserSyncService(repo, nil, nil, zap.NewNop())

	repo.users["clerk_get"] = &domain.User{
		ID:        uuid.New(),
		ClerkID:   "clerk_get",
		Email:     "get@example.com",
		CreatedAt: time.Now().UTC(),
	}

	user, err := service.GetUser(context.Background(), "clerk_get")
	assert.NoError(t, err)
	assert.Equal(t, "get@example.com", user.Email)
}
