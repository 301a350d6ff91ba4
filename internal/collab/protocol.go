package collab

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	FileID   string          `json:"fileId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	TypeWelcome = "welcome"
	TypeError   = "error"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"

	// Server events
	TypeFieldsSaved    = "fields.saved"
	TypeDocumentSigned = "document.signed"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// PresencePayload is what a viewer reports about itself.
type PresencePayload struct {
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
	Page        int    `json:"page,omitempty"`
}

const (
	RoleEditor = "editor"
	RoleSigner = "signer"
)

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID string `json:"clientId"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

type FieldsSavedPayload struct {
	Count    int    `json:"count"`
	Required int    `json:"required"`
	SavedAt  string `json:"savedAt"`
}

type DocumentSignedPayload struct {
	SignatureID    string `json:"signatureId"`
	SignerName     string `json:"signerName"`
	SignedAt       string `json:"signedAt"`
	SignatureCount int    `json:"signatureCount"`
}
