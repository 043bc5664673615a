// Package client contains the client-side building blocks that talk to the
// outside world: the remote inventory API and the local SQLite database.
//
// # Overview
//
//  1. A transport-agnostic contract (the Client interface) for the remote
//     API: reference listings (campaigns, groups, locations, paginated
//     articles), remote scans, and the two upload mutations (scans and
//     scan images). Upload results are correlated by the caller's local id.
//  2. A GraphQL-over-HTTP implementation (GraphQLClient) that injects the
//     bearer token from a TokenSource, bounds every request with a timeout,
//     and maps failures to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     pure-Go SQLite driver and the embedded goose migrations.
//
// # Error Handling
//
// Callers match failures with errors.Is: ErrUnavailable (network, timeout),
// ErrUnauthorized (401/403 or UNAUTHENTICATED), ErrTransport (any other
// non-2xx status, malformed body, GraphQL errors).
package client
