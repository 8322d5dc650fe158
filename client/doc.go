// Package client provides a thin wrapper for calling a single backing
// service: it builds the request, hands it to a pluggable [Transport] and
// normalizes every outcome into an [Envelope] or an [ErrorResult].
//
// # Building a Client
//
// Use [Build] with the service base URL, its credential and functional options:
//
//	c, err := client.Build("https://api.example.com", token,
//		client.WithTimeout(10*time.Second),
//		client.WithThrottle(10, 5),
//	)
//
// # Making Calls
//
// Get and Delete take query parameters, Post, Put and Patch take a body
// that is form encoded unless [WithRawBody] is given:
//
//	env, err := c.Get(ctx, "/users", map[string]string{"page": "2"})
//	env, err = c.Post(ctx, "/users", map[string]string{"name": "alice"})
//	env, err = c.Patch(ctx, "/users/1", user, client.WithRawBody())
//
// Any response the transport accepts, including 4xx and 5xx, comes back as
// an envelope with OK set from the status. Errors are either a
// [*RemoteError] (a response arrived but the transport refused it) or a
// [*TransportError] (no response at all, Code 500). [AsErrorResult]
// extracts the common shape from either.
//
// # Typed Payloads
//
// Envelopes carry the raw payload; [Decode] converts it:
//
//	users, err := client.Decode[[]User](env)
//
// # Transports
//
// The default transport sends requests through an *http.Client whose
// RoundTripper chain is assembled from the options. [WithTransportBuilder]
// swaps the final stage while keeping that chain, see
// [github.com/adamwoolhether/fetcher/client/restytransport].
package client
