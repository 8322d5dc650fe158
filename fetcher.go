// Package fetcher exposes the client builder.
package fetcher

import (
	"github.com/adamwoolhether/fetcher/client"
)

// New instantiates a *client.Client for baseURL with the provided options.
// If not specified, the default http.Client and http.Transport are used.
func New(baseURL, token string, opts ...client.Option) (*client.Client, error) {
	return client.Build(baseURL, token, opts...)
}
