package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonNull = []byte("null")

// Envelope is the uniform result of every completed call.
// OK is true exactly when 200 <= Code < 300.
type Envelope[T any] struct {
	OK      bool    `json:"ok"`
	Code    int     `json:"code"`
	Message *string `json:"message,omitempty"`
	Data    T       `json:"data"`
}

// Decode converts the raw payload of env into T.
func Decode[T any](env *Envelope[json.RawMessage]) (*Envelope[T], error) {
	if env == nil {
		return nil, fmt.Errorf("decoding envelope: nil envelope")
	}

	out := Envelope[T]{
		OK:      env.OK,
		Code:    env.Code,
		Message: env.Message,
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out.Data); err != nil {
			return nil, fmt.Errorf("decoding envelope data: %w", err)
		}
	}

	return &out, nil
}

func isRequestSuccess(code int) bool {
	return code >= 200 && code < 300
}

// formatResponse normalizes a raw response. With noMessage the envelope's
// Message is left nil.
func formatResponse(raw *RawResponse, noMessage bool) *Envelope[json.RawMessage] {
	env := Envelope[json.RawMessage]{
		OK:   isRequestSuccess(raw.Status),
		Code: raw.Status,
		Data: extractData(raw.Body),
	}

	if !noMessage {
		msg := raw.StatusText
		env.Message = &msg
	}

	return &env
}

// extractData returns body.data when the body is an object with a non-null
// "data" member, otherwise the whole body. Non-JSON bodies are returned as
// a JSON string and empty bodies as null.
func extractData(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage(jsonNull)
	}

	if !json.Valid(trimmed) {
		s, err := json.Marshal(string(body))
		if err != nil {
			return json.RawMessage(jsonNull)
		}
		return s
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if data, ok := obj["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), jsonNull) {
				return data
			}
		}
	}

	return json.RawMessage(trimmed)
}
