// Package cli is the interactive front end of the inventaire client.
//
// NewApp wires configuration, the local SQLite store, the GraphQL client and
// the services. App.Run restores the previous session, starts a background
// connectivity watcher and blocks in a line-oriented REPL (see runREPL for
// the command list). Everything except login, syncall, syncscans, retry,
// repair and "recap remote" works without network access.
package cli
