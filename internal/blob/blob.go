// Package blob stores uploaded source documents and hands back stable URLs.
// The URL doubles as the public handle for deleting a document later, so
// every implementation must be able to map a URL it issued back to the
// object it names.
package blob

import "context"

// Store persists uploaded documents as immutable blobs.
type Store interface {
	// Upload stores the file at localPath under objectName and returns the
	// blob's URL.
	Upload(ctx context.Context, localPath, objectName string) (string, error)

	// Delete removes the named object. Deleting a missing object is an error.
	Delete(ctx context.Context, objectName string) error

	// ObjectName maps a URL issued by Upload back to its object name.
	ObjectName(url string) (string, error)
}
