package client

import (
	"fmt"
	"net/http"
	"net/url"
)

// resolveHeaders merges the auth header and the caller headers.
// Caller headers are applied last so they win on a clash.
func (c *Client) resolveHeaders(headers map[string]string, useAuth bool) http.Header {
	h := make(http.Header, len(headers)+1)

	if useAuth && c.token != "" {
		h.Set(AuthHeader, c.token)
	}

	for k, v := range headers {
		h.Set(k, v)
	}

	return h
}

// buildURL joins the base URL, path and encoded query.
func (c *Client) buildURL(path string, params map[string]string) string {
	query := encodeQueryParams(params)
	if query == "" {
		return c.baseURL + path
	}

	return c.baseURL + path + "?" + query
}

// encodeQueryParams form encodes params, skipping empty values.
// Keys are emitted in sorted order.
func encodeQueryParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	values := make(url.Values, len(params))
	for k, v := range params {
		if len(v) == 0 {
			continue
		}
		values.Set(k, v)
	}

	return values.Encode()
}

// encodeBody prepares a verb body for the descriptor. It returns the value
// to send and the content type it implies, if any.
func encodeBody(body any, urlEncode bool) (any, string, error) {
	if !urlEncode {
		return body, "", nil
	}

	switch b := body.(type) {
	case nil:
		return "", contentTypeForm, nil
	case string:
		return b, contentTypeForm, nil
	case map[string]string:
		values := make(url.Values, len(b))
		for k, v := range b {
			values.Set(k, v)
		}
		return values.Encode(), contentTypeForm, nil
	case url.Values:
		return b.Encode(), contentTypeForm, nil
	case map[string][]string:
		return url.Values(b).Encode(), contentTypeForm, nil
	default:
		return nil, "", fmt.Errorf("%w: %T", ErrUnsupportedFormBody, body)
	}
}
