package rag

import "errors"

// ErrNoCollections is returned when a query arrives before any document has
// been ingested. Callers at the HTTP boundary translate it into a normal
// "no knowledge ingested yet" response rather than a failure.
var ErrNoCollections = errors.New("rag: no collections available")

// ErrCollectionNotFound is returned when an operation references a collection
// that no longer exists in the catalog or the vector store.
var ErrCollectionNotFound = errors.New("rag: collection not found")
