package client

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeQueryParams(t *testing.T) {
	testCases := map[string]struct {
		params map[string]string
		exp    string
	}{
		"nil":          {params: nil, exp: ""},
		"empty":        {params: map[string]string{}, exp: ""},
		"dropsEmpty":   {params: map[string]string{"a": "1", "b": ""}, exp: "a=1"},
		"allEmpty":     {params: map[string]string{"a": "", "b": ""}, exp: ""},
		"sorted":       {params: map[string]string{"z": "26", "a": "1"}, exp: "a=1&z=26"},
		"percentSpace": {params: map[string]string{"q": "a b&c"}, exp: "q=a+b%26c"},
		"unicode":      {params: map[string]string{"name": "jürgen"}, exp: "name=j%C3%BCrgen"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := encodeQueryParams(tc.params); got != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	c := &Client{baseURL: "https://api.example.com/v1"}

	testCases := map[string]struct {
		path   string
		params map[string]string
		exp    string
	}{
		"noParams":       {path: "/users", exp: "https://api.example.com/v1/users"},
		"withParams":     {path: "/users", params: map[string]string{"page": "2"}, exp: "https://api.example.com/v1/users?page=2"},
		"onlyEmptyParam": {path: "/users", params: map[string]string{"page": ""}, exp: "https://api.example.com/v1/users"},
		"emptyPath":      {path: "", exp: "https://api.example.com/v1"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := c.buildURL(tc.path, tc.params); got != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	testCases := map[string]struct {
		token   string
		headers map[string]string
		useAuth bool
		exp     http.Header
	}{
		"authInjected": {
			token:   "secret",
			useAuth: true,
			exp:     http.Header{"Token": {"secret"}},
		},
		"authDisabled": {
			token:   "secret",
			useAuth: false,
			exp:     http.Header{},
		},
		"noTokenConfigured": {
			token:   "",
			useAuth: true,
			headers: map[string]string{"Accept": "application/json"},
			exp:     http.Header{"Accept": {"application/json"}},
		},
		"callerOverridesToken": {
			token:   "secret",
			useAuth: true,
			headers: map[string]string{"Token": "override"},
			exp:     http.Header{"Token": {"override"}},
		},
		"callerOverridesTokenAnyCase": {
			token:   "secret",
			useAuth: true,
			headers: map[string]string{"token": "override"},
			exp:     http.Header{"Token": {"override"}},
		},
		"callerHeadersMerged": {
			token:   "secret",
			useAuth: true,
			headers: map[string]string{"X-Trace": "abc"},
			exp:     http.Header{"Token": {"secret"}, "X-Trace": {"abc"}},
		},
		"callerTokenWithoutAuth": {
			token:   "secret",
			useAuth: false,
			headers: map[string]string{"Token": "mine"},
			exp:     http.Header{"Token": {"mine"}},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			c := &Client{token: tc.token}

			got := c.resolveHeaders(tc.headers, tc.useAuth)
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeBody(t *testing.T) {
	type user struct {
		Name string `json:"name"`
	}

	testCases := map[string]struct {
		body      any
		urlEncode bool
		exp       any
		expCT     string
		expErr    error
	}{
		"formMap": {
			body:      map[string]string{"x": "1", "y": "a b"},
			urlEncode: true,
			exp:       "x=1&y=a+b",
			expCT:     contentTypeForm,
		},
		"formKeepsEmptyValues": {
			body:      map[string]string{"x": ""},
			urlEncode: true,
			exp:       "x=",
			expCT:     contentTypeForm,
		},
		"formValues": {
			body:      url.Values{"tag": {"a", "b"}},
			urlEncode: true,
			exp:       "tag=a&tag=b",
			expCT:     contentTypeForm,
		},
		"formPreEncoded": {
			body:      "a=1",
			urlEncode: true,
			exp:       "a=1",
			expCT:     contentTypeForm,
		},
		"formNil": {
			body:      nil,
			urlEncode: true,
			exp:       "",
			expCT:     contentTypeForm,
		},
		"formStruct": {
			body:      user{Name: "alice"},
			urlEncode: true,
			expErr:    ErrUnsupportedFormBody,
		},
		"rawStruct": {
			body: user{Name: "alice"},
			exp:  user{Name: "alice"},
		},
		"rawString": {
			body: `{"name":"alice"}`,
			exp:  `{"name":"alice"}`,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, ct, err := encodeBody(tc.body, tc.urlEncode)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp err %v, got: %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if ct != tc.expCT {
				t.Errorf("exp content type %q, got %q", tc.expCT, ct)
			}
		})
	}
}
