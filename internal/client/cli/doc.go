// Package cli provides the interactive idgate command-line client.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// A session keeps the user id and, once the identity is verified, the
// access token returned by the server.
package cli
