package ledger

import "github.com/google/uuid"

// Identity is the already-authenticated caller handed to the core by
// the auth boundary. The core never sees credentials or tokens.
type Identity struct {
	UserID uuid.UUID
	Email  string
}
