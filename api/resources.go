package api

import (
	"context"
	"net/url"
	"time"
)

// Resource is a teaching material entry (document, slide deck, link).
type Resource struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploadedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ResourceInput carries the writable fields of a resource.
type ResourceInput struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Kind    string `json:"kind"`
	URL     string `json:"url"`
}

// ResourceService manages teaching materials.
type ResourceService struct {
	c *Client
}

// List fetches resources, optionally filtered by subject.
func (s *ResourceService) List(ctx context.Context, subject string) ([]Resource, error) {
	query := url.Values{}
	if subject != "" {
		query.Set("subject", subject)
	}

	var resources []Resource
	if err := s.c.get(ctx, "/resources", query, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// Create registers a new resource entry.
func (s *ResourceService) Create(ctx context.Context, in ResourceInput) (Resource, error) {
	var resource Resource
	if err := s.c.post(ctx, "/resources", in, &resource); err != nil {
		return Resource{}, err
	}
	return resource, nil
}

// Delete removes a resource entry.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	return s.c.delete(ctx, "/resources/"+id)
}
