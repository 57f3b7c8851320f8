package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventKind(t *testing.T) {
	assert.Equal(t, KindUserCreated, ParseEventKind("user.created"))
	assert.Equal(t, KindUserUpdated, ParseEventKind("user.updated"))
	assert.Equal(t, KindUserDeleted, ParseEventKind("user.deleted"))

	// Sin matching por prefijo ni case-insensitive: igualdad exacta
	assert.Equal(t, KindUnknown, ParseEventKind("user.created.v2"))
	assert.Equal(t, KindUnknown, ParseEventKind("USER.CREATED"))
	assert.Equal(t, KindUnknown, ParseEventKind("session.created"))
	assert.Equal(t, KindUnknown, ParseEventKind(""))
}

func TestClerkEvent_Unmarshal(t *testing.T) {
	raw := `{
		"type": "user.created",
		"data": {
			"id": "clerk_1",
			"email_addresses": [{"email_address": "primero@example.com"}, {"email_address": "segundo@example.com"}],
			"image_url": "https://img.example.com/a.png",
			"first_name": "Ana",
			"last_name": null,
			"username": "anag"
		}
	}`

	var evt ClerkEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))

	assert.Equal(t, KindUserCreated, evt.Kind())
	assert.Equal(t, "clerk_1", evt.Data.ID)
	// Siempre el primer email de la lista
	assert.Equal(t, "primero@example.com", evt.Data.PrimaryEmail())
	// null => string vacío
	assert.Equal(t, "", evt.Data.LastName)
}

func TestPrimaryEmail_Empty(t *testing.T) {
	assert.Equal(t, "", ClerkUserData{}.PrimaryEmail())
	assert.Equal(t, "", ClerkUserData{EmailAddresses: []ClerkEmail{}}.PrimaryEmail())
}
