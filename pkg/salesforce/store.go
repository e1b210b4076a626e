package salesforce

import "context"

// TokenStore persists a single access token.
//
// Fetch returns a *StoreNotFoundError when nothing has been saved yet. A token
// passed to Save must come back equivalent from a later Fetch on the same store.
type TokenStore interface {
	Fetch(ctx context.Context) (*AccessToken, error)
	Save(ctx context.Context, token *AccessToken) error
}
