// Package services contains the application services of the inventory
// client: the offline reference cache, the local scan store, the sync
// orchestrator, session and group-PIN handling, and the recap builder.
//
// Services are safe for concurrent use. Storage goes through the
// repositories in internal/client/repositories, remote calls through
// client.Client.
package services
