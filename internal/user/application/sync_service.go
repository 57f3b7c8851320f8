package application

import (
	"context"
	"time"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/davicafu/eventify/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserSyncService materializa los eventos del proveedor de identidad en el
// directorio local de usuarios. No garantiza idempotencia por delivery id:
// una reentrega re-ejecuta la mutación y el repositorio decide el efecto neto.
type UserSyncService struct {
	repo     domain.UserRepository
	cache    domain.UserCache
	identity domain.MetadataPusher
	log      *zap.Logger
}

// NewUserSyncService constructor. identity puede ser nil (sin push de metadatos).
func NewUserSyncService(repo domain.UserRepository, cache domain.UserCache, identity domain.MetadataPusher, log *zap.Logger) *UserSyncService {
	return &UserSyncService{
		repo:     repo,
		cache:    cache,
		identity: identity,
		log:      log,
	}
}

// HandleUserCreated crea el registro local y, si la creación tuvo éxito,
// empuja {userId, profile.photo} como metadatos públicos al proveedor.
// El push es best-effort: su fallo se loguea y NO revierte la creación.
func (s *UserSyncService) HandleUserCreated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error) {
	user := &domain.User{
		ID:        uuid.New(),
		ClerkID:   data.ID,
		Email:     data.PrimaryEmail(),
		Username:  data.Username,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Photo:     data.ImageURL,
		CreatedAt: time.Now().UTC(),
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   user.ClerkID,
		EventType:     domain.UserCreated,
		Payload:       user,
		CreatedAt:     time.Now().UTC(),
		Processed:     false,
	}

	if err := s.repo.Create(ctx, user, evt); err != nil {
		return nil, err
	}

	s.cacheSet(user)

	if s.identity != nil {
		md := domain.IdentityMetadata{
			UserID: user.ID.String(),
			Photo:  data.ImageURL,
		}
		if err := s.identity.PushUserMetadata(ctx, user.ClerkID, md); err != nil {
			// Escritura secundaria de la saga: sin compensación definida.
			s.log.Warn("⚠️ No se pudo empujar metadatos al proveedor de identidad",
				zap.String("clerk_id", user.ClerkID),
				zap.Error(err),
			)
		}
	}

	return user, nil
}

// HandleUserUpdated sobreescribe los campos de perfil con los valores del
// payload. Los campos ausentes llegan como "" y TAMBIÉN se escriben: es una
// política de defaulting, no un patch parcial. El email no se toca.
func (s *UserSyncService) HandleUserUpdated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error) {
	user, err := s.repo.GetByClerkID(ctx, data.ID)
	if err != nil {
		return nil, err
	}

	user.Username = data.Username
	user.FirstName = data.FirstName
	user.LastName = data.LastName
	user.Photo = data.ImageURL

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   user.ClerkID,
		EventType:     domain.UserUpdated,
		Payload:       user,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Update(ctx, user, evt); err != nil {
		return nil, err
	}

	s.cacheSet(user)

	return user, nil
}

// HandleUserDeleted elimina el registro por id externo ("" si falta en el payload).
func (s *UserSyncService) HandleUserDeleted(ctx context.Context, clerkID string) (*domain.User, error) {
	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   clerkID,
		EventType:     domain.UserDeleted,
		Payload:       map[string]string{"clerk_id": clerkID},
		CreatedAt:     time.Now().UTC(),
		Processed:     false,
	}

	user, err := s.repo.DeleteByClerkID(ctx, clerkID, evt)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		go func() { _ = s.cache.Delete(context.Background(), domain.CacheKeyByClerkID(clerkID)) }()
	}

	return user, nil
}

// GetUser obtiene un usuario por id externo (primero intenta desde cache).
func (s *UserSyncService) GetUser(ctx context.Context, clerkID string) (*domain.User, error) {
	if s.cache != nil {
		var u domain.User
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByClerkID(clerkID), &u); ok {
			return &u, nil
		}
	}

	user, err := s.repo.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(user)

	return user, nil
}

// ListUsers devuelve usuarios aplicando filtros.
func (s *UserSyncService) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	return s.repo.List(ctx, f)
}

// cacheSet actualiza la cache en background sin bloquear la respuesta.
func (s *UserSyncService) cacheSet(u *domain.User) {
	if s.cache == nil {
		return
	}
	go func(u *domain.User) {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := s.cache.Set(ctxCache, domain.CacheKeyByClerkID(u.ClerkID), u, 60); err != nil {
			s.log.Warn("⚠️ Cache update failed", zap.String("clerk_id", u.ClerkID), zap.Error(err))
		}
	}(u)
}
