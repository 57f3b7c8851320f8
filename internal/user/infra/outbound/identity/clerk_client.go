package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/davicafu/eventify/internal/user/domain"
)

// ClerkMetadataClient empuja metadatos públicos al usuario en Clerk usando el
// SDK oficial. Se inyecta como handle explícito, nunca como singleton ambiental.
type ClerkMetadataClient struct{}

// NewClerkMetadataClient configura la clave del SDK y devuelve el cliente.
func NewClerkMetadataClient(secretKey string) (*ClerkMetadataClient, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}
	clerk.SetKey(secretKey)
	return &ClerkMetadataClient{}, nil
}

// clerkPublicMetadata replica la forma que consume el frontend:
// { userId, profile: { photo } }.
type clerkPublicMetadata struct {
	UserID  string       `json:"userId"`
	Profile clerkProfile `json:"profile"`
}

type clerkProfile struct {
	Photo string `json:"photo"`
}

func (c *ClerkMetadataClient) PushUserMetadata(ctx context.Context, clerkID string, md domain.IdentityMetadata) error {
	raw, err := json.Marshal(clerkPublicMetadata{
		UserID:  md.UserID,
		Profile: clerkProfile{Photo: md.Photo},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal public metadata: %w", err)
	}

	publicMetadata := json.RawMessage(raw)
	if _, err := clerkuser.UpdateMetadata(ctx, clerkID, &clerkuser.UpdateMetadataParams{
		PublicMetadata: &publicMetadata,
	}); err != nil {
		return fmt.Errorf("failed to update clerk metadata for %s: %w", clerkID, err)
	}
	return nil
}

// Verificación estática
var _ domain.MetadataPusher = (*ClerkMetadataClient)(nil)
