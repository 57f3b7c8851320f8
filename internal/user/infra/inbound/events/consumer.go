package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedInfraEvents "github.com/davicafu/eventify/internal/shared/infra/events"
	sharedUtils "github.com/davicafu/eventify/internal/shared/infra/utils"
	"github.com/davicafu/eventify/internal/user/domain"
)

// UserDirectoryConsumer mantiene caliente la cache del directorio a partir de
// los eventos de usuario publicados en el bus.
type UserDirectoryConsumer struct {
	cache domain.UserCache
	log   *zap.Logger
}

func NewUserDirectoryConsumer(cache domain.UserCache, log *zap.Logger) *UserDirectoryConsumer {
	return &UserDirectoryConsumer{cache: cache, log: log}
}

// HandleMessage procesa un mensaje del topic de usuarios. Los payloads de
// borrado no traen perfil completo y se ignoran: la cache ya se invalida en
// el servicio.
func (c *UserDirectoryConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	sharedUtils.UnmarshalAndHandle(c.log, json.RawMessage(payload), func(u domain.User) {
		if u.ClerkID == "" || u.ID == uuid.Nil {
			return
		}

		if err := c.cache.Set(ctx, domain.CacheKeyByClerkID(u.ClerkID), &u, 60); err != nil {
			c.log.Warn("⚠️ No se pudo refrescar la cache de usuario",
				zap.String("clerk_id", u.ClerkID),
				zap.Error(err),
			)
		}
	})
}

// BackgroundConsumerChan consume eventos desde un canal en memoria.
func BackgroundConsumerChan(ctx context.Context, ch <-chan interface{}, consumer *UserDirectoryConsumer) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if payload, ok := msg.([]byte); ok {
					consumer.HandleMessage(ctx, "", payload)
				}
			}
		}
	}()
}

// Verificación estática
var _ sharedInfraEvents.MessageHandler = (*UserDirectoryConsumer)(nil)
