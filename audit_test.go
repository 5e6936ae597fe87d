package edusession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edusoft/edusession/store"
)

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), AuditEvent{EventType: "login_success"})

	select {
	case event := <-sink.Events():
		if event.EventType != "login_success" {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "logout", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "login_failure", Error: "invalid"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var event AuditEvent
	if err := json.Unmarshal(lines[0], &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.EventType != "logout" || !event.Success {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("disabled audit must not start a dispatcher")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_success"})
	}
	d.Close()

	for i := 0; i < 5; i++ {
		select {
		case <-sink.Events():
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered after Close", i)
		}
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that never consumes: with DropIfFull, overflow counts as
	// dropped instead of blocking the caller.
	blocked := make(chan struct{})
	sink := blockingSink{release: blocked}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		d.Emit(context.Background(), AuditEvent{EventType: "login_success"})
		select {
		case <-deadline:
			t.Fatal("expected a drop under backpressure")
		default:
		}
	}

	close(blocked)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestLoginFailureAuditEvent(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sink := NewChannelSink(16)
	cfg := testConfig(srv.URL)

	client, _, err := New().
		WithConfig(cfg).
		WithStore(store.NewMemory()).
		WithHTTPClient(srv.Client()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := WithClientTag(context.Background(), "web")
	if _, err := client.LoginWithPassword(ctx, "13800138000", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	client.Close()

	select {
	case event := <-sink.Events():
		if event.EventType != "login_failure" || event.Success {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Phone != "13800138000" {
			t.Fatalf("expected phone on the event, got %q", event.Phone)
		}
		if event.Metadata["client_tag"] != "web" {
			t.Fatalf("expected client tag metadata, got %+v", event.Metadata)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an audit event")
	}
}

func TestLogoutAuditEventCarriesEpoch(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	sink := NewChannelSink(16)

	client, state, err := New().
		WithConfig(testConfig(srv.URL)).
		WithStore(store.NewMemory()).
		WithHTTPClient(srv.Client()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	epoch := state.Epoch()
	state.Logout(context.Background())
	client.Close()

	select {
	case event := <-sink.Events():
		if event.EventType != "logout" || !event.Success {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Epoch != epoch {
			t.Fatalf("expected the torn-down session epoch %q, got %q", epoch, event.Epoch)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an audit event")
	}
}
