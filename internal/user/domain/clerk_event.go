package domain

// EventKind es la variante cerrada sobre los tipos de evento conocidos del
// webhook. Cualquier tag no reconocido cae en KindUnknown y se responde como
// acuse de recibo sin mutación.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindUserCreated
	KindUserUpdated
	KindUserDeleted
)

// ParseEventKind clasifica el tag de tipo por igualdad exacta.
func ParseEventKind(tag string) EventKind {
	switch tag {
	case UserCreated:
		return KindUserCreated
	case UserUpdated:
		return KindUserUpdated
	case UserDeleted:
		return KindUserDeleted
	default:
		return KindUnknown
	}
}

// ClerkEvent es el sobre del webhook una vez verificada la firma.
// Transitorio: vive solo durante la request.
type ClerkEvent struct {
	Type string        `json:"type"`
	Data ClerkUserData `json:"data"`
}

// Kind devuelve la variante cerrada del tag.
func (e ClerkEvent) Kind() EventKind {
	return ParseEventKind(e.Type)
}

// ClerkUserData es el payload de usuario que envía Clerk. Los campos ausentes
// o null quedan como string vacío (política de defaulting, no patch parcial).
type ClerkUserData struct {
	ID             string       `json:"id"`
	EmailAddresses []ClerkEmail `json:"email_addresses"`
	ImageURL       string       `json:"image_url"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Username       string       `json:"username"`
}

type ClerkEmail struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail devuelve el primer email de la lista, o "" si no hay.
func (d ClerkUserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}
