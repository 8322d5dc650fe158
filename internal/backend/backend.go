// Package backend is a small in-process service speaking the
// {data, message} response convention the client expects. It backs the
// end-to-end tests and local experiments with the fetcher command.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/fetcher/internal/validate"
)

// Handler handles a request and returns an error the App renders.
type Handler func(w http.ResponseWriter, r *http.Request) error

// Error is an application error rendered as {"message": ...} with Code.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

// NewError constructs an *Error carrying code and err's message.
func NewError(code int, err error) *Error {
	return &Error{Code: code, Message: err.Error()}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// App is an http.Handler routing to Handlers.
type App struct {
	mux *http.ServeMux
	log *slog.Logger
}

// New creates an App. A nil log falls back to slog.Default().
func New(log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	return &App{mux: http.NewServeMux(), log: log}
}

// Handle registers h for pattern, using http.ServeMux pattern syntax.
func (a *App) Handle(pattern string, h Handler) {
	a.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		err := a.recoverPanic(h)(w, r)
		if err == nil {
			return
		}

		if err := a.respondError(w, err); err != nil {
			a.log.Error("responding with error", "error", err)
		}
	})
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *App) recoverPanic(h Handler) Handler {
	return func(w http.ResponseWriter, r *http.Request) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("PANIC [%v]", rec)
			}
		}()

		return h(w, r)
	}
}

func (a *App) respondError(w http.ResponseWriter, err error) error {
	if fields, ok := errors.AsType[validate.FieldErrors](err); ok {
		return RespondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "validation failed",
			"data":    fields.Fields(),
		})
	}

	appErr, ok := errors.AsType[*Error](err)
	if !ok { // obscure errors that escaped the handler.
		a.log.Error(err.Error())
		appErr = &Error{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	}

	return RespondJSON(w, appErr.Code, appErr)
}

// Respond writes data under the "data" key with statusCode.
func Respond(w http.ResponseWriter, statusCode int, data any) error {
	return RespondJSON(w, statusCode, map[string]any{"data": data})
}

// RespondJSON writes v as the JSON body with statusCode.
func RespondJSON(w http.ResponseWriter, statusCode int, v any) error {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(b); err != nil {
		return err
	}

	return nil
}

// DecodeForm parses a form encoded body into a flat map, taking the first
// value of each key.
func DecodeForm(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, NewError(http.StatusBadRequest, err)
	}

	out := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}

	return out, nil
}

// DecodeJSON decodes a JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return NewError(http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
	}

	return validate.Struct(v)
}
