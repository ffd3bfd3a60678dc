package localstore

import (
	"context"
	"strings"
)

// Credentials are the identities the sync engine can upload with.
type Credentials struct {
	Token  string
	UserID string
}

func (s *Store) Credentials(ctx context.Context) (Credentials, error) {
	token, _, err := s.get(ctx, keyToken)
	if err != nil {
		return Credentials{}, err
	}
	userID, _, err := s.get(ctx, keyUserID)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: token, UserID: userID}, nil
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, s.db, keyToken, strings.TrimSpace(token))
}

func (s *Store) SetUserID(ctx context.Context, userID string) error {
	return s.set(ctx, s.db, keyUserID, strings.TrimSpace(userID))
}

// ClearCredentials forgets both the token and the legacy user id.
func (s *Store) ClearCredentials(ctx context.Context) error {
	if err := s.del(ctx, s.db, keyToken); err != nil {
		return err
	}
	return s.del(ctx, s.db, keyUserID)
}
