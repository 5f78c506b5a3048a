package entity

import (
	"time"
)

// Identity is a chat user as known to the identity store.
type Identity struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Handle    string    `bson:"handle" json:"handle"` // phone number or chat id
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
