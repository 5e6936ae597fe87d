package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticTokens string

func (s staticTokens) AccessToken(context.Context) string { return string(s) }

func newTestAPI(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()

	srv := httptest.NewServer(handler)
	return New(srv.Client(), srv.URL, staticTokens("tok")), srv.Close
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var auth string
	client, done := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]Class{})
	}))
	defer done()

	if _, err := client.Classes().List(context.Background()); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if auth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrRemote},
	}
	for _, tc := range cases {
		client, done := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		_, err := client.Classes().Get(context.Background(), "c1")
		done()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestClassCRUD(t *testing.T) {
	class := Class{ID: "c1", Name: "Grade 7 (2)", Grade: "7", HeadTeacher: "Ms. Wu", StudentCount: 41}

	mux := http.NewServeMux()
	mux.HandleFunc("/classes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]Class{class})
		case http.MethodPost:
			var in ClassInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(Class{ID: "c2", Name: in.Name, Grade: in.Grade})
		}
	})
	mux.HandleFunc("/classes/c1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodPut:
			_ = json.NewEncoder(w).Encode(class)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	client, done := newTestAPI(t, mux)
	defer done()

	ctx := context.Background()
	classes, err := client.Classes().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(classes) != 1 || classes[0].Name != "Grade 7 (2)" {
		t.Fatalf("unexpected classes: %+v", classes)
	}

	created, err := client.Classes().Create(ctx, ClassInput{Name: "Grade 8 (1)", Grade: "8"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "c2" || created.Name != "Grade 8 (1)" {
		t.Fatalf("unexpected created class: %+v", created)
	}

	if _, err := client.Classes().Get(ctx, "c1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := client.Classes().Delete(ctx, "c1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestAccountListFilters(t *testing.T) {
	var query string
	client, done := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]Account{{ID: "u1", Name: "Alice", Role: "student"}})
	}))
	defer done()

	accounts, err := client.Accounts().List(context.Background(), "student", "c1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Alice" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
	if query != "classId=c1&role=student" {
		t.Fatalf("unexpected query: %q", query)
	}
}

func TestAssignmentCreate(t *testing.T) {
	client, done := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assignments" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var in AssignmentInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(Assignment{ID: "a1", Title: in.Title, Subject: in.Subject})
	}))
	defer done()

	created, err := client.Assignments().Create(context.Background(), AssignmentInput{
		Title:   "Chapter 3 review",
		Subject: "math",
		ClassID: "c1",
		DueAt:   time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "a1" || created.Title != "Chapter 3 review" {
		t.Fatalf("unexpected assignment: %+v", created)
	}
}

func TestLogQueryEncoding(t *testing.T) {
	var query string
	client, done := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]LogEntry{})
	}))
	defer done()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.Logs().List(context.Background(), LogQuery{
		Actor:  "13800138000",
		Action: "login",
		Since:  since,
		Limit:  50,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if query != "action=login&actor=13800138000&limit=50&since=2026-03-01T00%3A00%3A00Z" {
		t.Fatalf("unexpected query: %q", query)
	}
}
