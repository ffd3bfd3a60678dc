package token

import "time"

// Entry is what the store keeps for an issued token.
type Entry struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Issued is returned to the extension after a successful pairing.
type Issued struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	TTL       time.Duration
}

// ExpiresInSeconds is the remaining lifetime reported on the wire.
func (i *Issued) ExpiresInSeconds() int64 {
	return int64(i.TTL / time.Second)
}
