// Package scans provides the client-side persistence layer for scan records.
//
// Records are inserted once by the scanning flow and afterwards only their
// sync columns (remote_id, is_synced, synced_without_image) change. Nothing
// in the client deletes a scan.
//
// Listings are ordered newest first (captured_at DESC, then id) and can be
// scoped with a models.ScanFilter. Image URIs are stored in three nullable
// slots, image1..image3.
//
// Typical Usage
//
//	repo := scans.NewSQLiteRepository(db)
//	_ = repo.Create(ctx, rec)
//	pending := false
//	list, _ := repo.List(ctx, models.ScanFilter{IsSynced: &pending})
//	_ = repo.MarkSynced(ctx, models.SyncUpdate{ID: rec.ID, RemoteID: "r1"})
package scans
