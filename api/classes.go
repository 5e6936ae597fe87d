package api

import (
	"context"
	"time"
)

// Class is one class roster entry.
type Class struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Grade        string    `json:"grade"`
	HeadTeacher  string    `json:"headTeacher"`
	StudentCount int       `json:"studentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ClassInput is the create/update payload for a class.
type ClassInput struct {
	Name        string `json:"name"`
	Grade       string `json:"grade"`
	HeadTeacher string `json:"headTeacher,omitempty"`
}

// ClassService manages the class roster (admin screens).
type ClassService struct {
	c *Client
}

// List fetches every class.
func (s *ClassService) List(ctx context.Context) ([]Class, error) {
	var classes []Class
	if err := s.c.get(ctx, "/classes", nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// Get fetches one class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (Class, error) {
	var class Class
	if err := s.c.get(ctx, "/classes/"+id, nil, &class); err != nil {
		return Class{}, err
	}
	return class, nil
}

// Create registers a new class and returns the stored record.
func (s *ClassService) Create(ctx context.Context, in ClassInput) (Class, error) {
	var class Class
	if err := s.c.post(ctx, "/classes", in, &class); err != nil {
		return Class{}, err
	}
	return class, nil
}

// Update replaces the mutable fields of a class.
func (s *ClassService) Update(ctx context.Context, id string, in ClassInput) (Class, error) {
	var class Class
	if err := s.c.put(ctx, "/classes/"+id, in, &class); err != nil {
		return Class{}, err
	}
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, "/classes/"+id)
}
