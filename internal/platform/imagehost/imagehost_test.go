package imagehost

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUploadSendsMultipartImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k-1" {
			t.Errorf("expected api key in query, got %q", r.URL.RawQuery)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "me.png" || string(data) != "png-bytes" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/x/me.png"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "k-1", time.Second)
	got, err := client.Upload(context.Background(), "me.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got != "https://i.ibb.co/x/me.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"Invalid API v1 key."}}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "", time.Second).Upload(context.Background(), "a.png", strings.NewReader("x")); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	client := New(srv.URL, "bad", time.Second)
	if _, err := client.Upload(context.Background(), "a.png", strings.NewReader("")); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected empty image, got %v", err)
	}
	big := bytes.Repeat([]byte("x"), MaxImageBytes+1)
	if _, err := client.Upload(context.Background(), "a.png", bytes.NewReader(big)); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	_, err := client.Upload(context.Background(), "a.png", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "Invalid API v1 key.") {
		t.Fatalf("expected host error message, got %v", err)
	}
}
