package api

import (
	"context"
	"net/url"
	"time"
)

// Account is one platform user as seen by the admin screens. Distinct from
// the session-scoped user projection: this is directory data, not auth
// state.
type Account struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ClassID   string    `json:"classId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountUpdate is the mutable subset of an account.
type AccountUpdate struct {
	Name    string `json:"name,omitempty"`
	ClassID string `json:"classId,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// AccountService manages platform users (admin screens). Account creation
// goes through registration, not this service.
type AccountService struct {
	c *Client
}

// List fetches accounts, optionally filtered by role and/or class.
func (s *AccountService) List(ctx context.Context, role, classID string) ([]Account, error) {
	query := url.Values{}
	if role != "" {
		query.Set("role", role)
	}
	if classID != "" {
		query.Set("classId", classID)
	}

	var accounts []Account
	if err := s.c.get(ctx, "/users", query, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Get fetches one account by ID.
func (s *AccountService) Get(ctx context.Context, id string) (Account, error) {
	var account Account
	if err := s.c.get(ctx, "/users/"+id, nil, &account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Update replaces the mutable fields of an account.
func (s *AccountService) Update(ctx context.Context, id string, in AccountUpdate) (Account, error) {
	var account Account
	if err := s.c.put(ctx, "/users/"+id, in, &account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, "/users/"+id)
}
