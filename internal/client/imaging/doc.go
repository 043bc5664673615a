// Package imaging loads the images attached to scan records and prepares
// them for upload: decode, re-encode as JPEG at a reduced quality, base64.
//
// Image URIs are resolved by a Source. FileSource reads local paths and
// file:// URIs, S3Source reads s3://bucket/key objects from an
// S3-compatible store, and Router dispatches on the URI scheme.
//
// Every failure is wrapped with ErrImageProcessing so that callers can tell
// a bad image from a transport failure.
package imaging
