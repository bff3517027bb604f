// Package server hosts the short-lived localhost HTTP server that completes
// the Spotify OAuth login: a small router, a middleware hook, and the
// /callback handler that validates state and performs the code exchange.
package server
