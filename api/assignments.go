package api

import (
	"context"
	"net/url"
	"time"
)

// Assignment is homework published to a class.
type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	ClassID     string    `json:"classId"`
	DueAt       time.Time `json:"dueAt"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AssignmentInput carries the writable fields of an assignment.
type AssignmentInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject"`
	ClassID     string    `json:"classId"`
	DueAt       time.Time `json:"dueAt"`
	Published   bool      `json:"published"`
}

// AssignmentService manages homework records.
type AssignmentService struct {
	c *Client
}

// List fetches assignments, optionally scoped to a class and/or subject.
func (s *AssignmentService) List(ctx context.Context, classID, subject string) ([]Assignment, error) {
	query := url.Values{}
	if classID != "" {
		query.Set("classId", classID)
	}
	if subject != "" {
		query.Set("subject", subject)
	}

	var assignments []Assignment
	if err := s.c.get(ctx, "/assignments", query, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Get fetches one assignment by ID.
func (s *AssignmentService) Get(ctx context.Context, id string) (Assignment, error) {
	var assignment Assignment
	if err := s.c.get(ctx, "/assignments/"+id, nil, &assignment); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

// Create publishes a new assignment.
func (s *AssignmentService) Create(ctx context.Context, in AssignmentInput) (Assignment, error) {
	var assignment Assignment
	if err := s.c.post(ctx, "/assignments", in, &assignment); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

// Update replaces an assignment's writable fields.
func (s *AssignmentService) Update(ctx context.Context, id string, in AssignmentInput) (Assignment, error) {
	var assignment Assignment
	if err := s.c.put(ctx, "/assignments/"+id, in, &assignment); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, "/assignments/"+id)
}
