package gateway

import (
	"net/http"
	"net/url"
)

// Request describes one call against the remote API. Idempotent requests may be retried once.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Body         any
	Idempotent   bool
	Anonymous    bool
	ExpectStatus int
}

func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query, Idempotent: true}
}

func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

func Put(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, Body: body, Idempotent: true}
}

func Patch(path string, body any) Request {
	return Request{Method: http.MethodPatch, Path: path, Body: body}
}

func Delete(path string) Request {
	return Request{Method: http.MethodDelete, Path: path, Idempotent: true}
}

// WithoutCredential marks the request as one that must not carry a bearer token (login, register).
func (r Request) WithoutCredential() Request {
	r.Anonymous = true
	return r
}

func (r Request) Expect(status int) Request {
	r.ExpectStatus = status
	return r
}
