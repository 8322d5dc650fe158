package restytransport_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/fetcher/client"
	"github.com/adamwoolhether/fetcher/client/restytransport"
)

type user struct {
	Name string `json:"name"`
}

func TestTransport_ThroughClient(t *testing.T) {
	var gotToken, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(client.AuthHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"name":"alice"}}`))
	}))
	defer server.Close()

	c, err := client.Build(server.URL, "secret",
		client.WithTransportBuilder(restytransport.Builder(nil)),
		client.WithUserAgent("fetcher-test/1.0"),
	)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	env, err := c.Post(t.Context(), "/users", user{Name: "alice"}, client.WithRawBody())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotToken != "secret" {
		t.Errorf("token header = %q, want %q", gotToken, "secret")
	}
	if !strings.HasPrefix(gotContentType, "application/json") {
		t.Errorf("content type = %q, want application/json", gotContentType)
	}

	var sent user
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("server received non-JSON body %q: %v", gotBody, err)
	}
	if sent.Name != "alice" {
		t.Errorf("sent name = %q, want alice", sent.Name)
	}

	typed, err := client.Decode[user](env)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}

	exp := &client.Envelope[user]{OK: true, Code: http.StatusCreated, Data: user{Name: "alice"}}
	if diff := cmp.Diff(exp, typed); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestTransport_FormBody(t *testing.T) {
	var gotBody, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := client.Build(server.URL, "", client.WithTransportBuilder(restytransport.Builder(nil)))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	if _, err := c.Put(t.Context(), "/form", map[string]string{"x": "1", "y": "a b"}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotBody != "x=1&y=a+b" {
		t.Errorf("body = %q, want %q", gotBody, "x=1&y=a+b")
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
}

func TestTransport_NonSuccessIsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer server.Close()

	c, err := client.Build(server.URL, "", client.WithTransportBuilder(restytransport.Builder(nil)))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	env, err := c.Get(t.Context(), "/missing", nil)
	if err != nil {
		t.Fatalf("expected envelope, got error: %v", err)
	}
	if env.OK || env.Code != http.StatusNotFound {
		t.Errorf("got ok=%v code=%d, want ok=false code=404", env.OK, env.Code)
	}
}

func TestTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	c, err := client.Build(base, "", client.WithTransportBuilder(restytransport.Builder(nil)))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	_, err = c.Delete(t.Context(), "/gone", nil)
	if !errors.Is(err, client.ErrTransport) {
		t.Fatalf("expected transport error, got: %v", err)
	}

	res, ok := client.AsErrorResult(err)
	if !ok || res.Code != http.StatusInternalServerError || res.OK {
		t.Errorf("unexpected error result: %+v", res)
	}
}

func TestTransport_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1<<20)
		w.WriteHeader(http.StatusOK)
		for range client.MaxBodySize>>20 + 2 {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c, err := client.Build(server.URL, "", client.WithTransportBuilder(restytransport.Builder(nil)))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	_, err = c.Get(t.Context(), "/huge", nil)
	if !errors.Is(err, client.ErrRemote) || !errors.Is(err, client.ErrBodyTooLarge) {
		t.Fatalf("expected remote ErrBodyTooLarge, got: %v", err)
	}

	res, _ := client.AsErrorResult(err)
	if res.Code != http.StatusOK {
		t.Errorf("expected code 200, got %d", res.Code)
	}
}
