package contact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"optimahub/internal/gateway"
)

func TestSendRequiresCreated(t *testing.T) {
	status := int32(http.StatusCreated)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer srv.Close()
	api := gateway.New(srv.URL).Bind(nil)

	if err := Send(context.Background(), api, Message{Email: " a@example.com ", Message: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	atomic.StoreInt32(&status, http.StatusOK)
	if err := Send(context.Background(), api, Message{Email: "a@example.com", Message: "hello"}); err == nil {
		t.Fatal("a 200 answer must not count as delivered")
	}
}

func TestValidateBeforeSending(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	api := gateway.New(srv.URL).Bind(nil)

	if err := Send(context.Background(), api, Message{Email: "not-an-email", Message: "hi"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if err := Send(context.Background(), api, Message{Email: "Eve <eve@example.com>", Message: "hi"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected bare address requirement, got %v", err)
	}
	if err := Send(context.Background(), api, Message{Email: "eve@example.com", Message: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected empty message, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("invalid messages must not be sent")
	}
}
