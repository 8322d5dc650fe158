package backend_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adamwoolhether/fetcher/internal/backend"
)

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func newApp() *backend.App {
	app := backend.New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	app.Handle("GET /ok", func(w http.ResponseWriter, r *http.Request) error {
		return backend.Respond(w, http.StatusOK, map[string]string{"hello": "world"})
	})
	app.Handle("GET /missing", func(w http.ResponseWriter, r *http.Request) error {
		return backend.NewError(http.StatusNotFound, errors.New("widget not found"))
	})
	app.Handle("GET /boom", func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("database exploded")
	})
	app.Handle("GET /panic", func(w http.ResponseWriter, r *http.Request) error {
		panic("oh no")
	})
	app.Handle("POST /form", func(w http.ResponseWriter, r *http.Request) error {
		form, err := backend.DecodeForm(r)
		if err != nil {
			return err
		}
		return backend.Respond(w, http.StatusCreated, form)
	})
	app.Handle("POST /signup", func(w http.ResponseWriter, r *http.Request) error {
		var s signup
		if err := backend.DecodeJSON(r, &s); err != nil {
			return err
		}
		return backend.Respond(w, http.StatusCreated, s)
	})
	app.Handle("DELETE /gone", func(w http.ResponseWriter, r *http.Request) error {
		return backend.RespondJSON(w, http.StatusNoContent, nil)
	})

	return app
}

func TestApp(t *testing.T) {
	testCases := map[string]struct {
		method      string
		path        string
		contentType string
		body        string
		expCode     int
		expBody     string
	}{
		"ok":          {method: http.MethodGet, path: "/ok", expCode: 200, expBody: `{"data":{"hello":"world"}}`},
		"appError":    {method: http.MethodGet, path: "/missing", expCode: 404, expBody: `{"message":"widget not found"}`},
		"escaped":     {method: http.MethodGet, path: "/boom", expCode: 500, expBody: `{"message":"Internal Server Error"}`},
		"panic":       {method: http.MethodGet, path: "/panic", expCode: 500, expBody: `{"message":"Internal Server Error"}`},
		"form":        {method: http.MethodPost, path: "/form", contentType: "application/x-www-form-urlencoded", body: "a=1&b=x+y", expCode: 201, expBody: `{"data":{"a":"1","b":"x y"}}`},
		"json":        {method: http.MethodPost, path: "/signup", contentType: "application/json", body: `{"name":"al","email":"al@example.com"}`, expCode: 201, expBody: `{"data":{"name":"al","email":"al@example.com"}}`},
		"invalidJSON": {method: http.MethodPost, path: "/signup", contentType: "application/json", body: `{"name":`, expCode: 400},
		"fields":      {method: http.MethodPost, path: "/signup", contentType: "application/json", body: `{"name":"al"}`, expCode: 422},
		"noContent":   {method: http.MethodDelete, path: "/gone", expCode: 204},
	}

	app := newApp()

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.contentType != "" {
				r.Header.Set("Content-Type", tc.contentType)
			}
			w := httptest.NewRecorder()

			app.ServeHTTP(w, r)

			if w.Code != tc.expCode {
				t.Errorf("exp code %d, got %d: %s", tc.expCode, w.Code, w.Body.String())
			}
			if tc.expBody != "" && w.Body.String() != tc.expBody {
				t.Errorf("exp body %s, got %s", tc.expBody, w.Body.String())
			}
		})
	}
}

func TestApp_FieldErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"name":"al","email":"nope"}`))
	w := httptest.NewRecorder()

	newApp().ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("exp 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"email":"email must be a valid email address"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"message":"validation failed"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
