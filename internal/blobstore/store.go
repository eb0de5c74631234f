// Package blobstore abstracts the content store that holds archived
// documents and their metadata records.
package blobstore

import (
	"context"
	"time"
)

// Object is a stored blob plus the key/value metadata attached to it.
type Object struct {
	Container   string            `json:"container"`
	Path        string            `json:"path"`
	ContentType string            `json:"content_type"`
	Data        []byte            `json:"-"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	SizeBytes   int               `json:"size_bytes"`
	StoredAt    time.Time         `json:"stored_at"`
}

// Store is the content store collaborator. Uploads are unconditional
// overwrites: the pipeline's addresses are deterministic, so a retried write
// replaces rather than duplicates. EnsureContainer is create-if-absent and
// concurrent creation of the same container is success, not error.
type Store interface {
	EnsureContainer(ctx context.Context, container string) error
	Upload(ctx context.Context, obj Object) error
	Download(ctx context.Context, container, path string) (*Object, error)
	// List returns objects under the prefix stored at or after since,
	// without their data payloads. A zero since means no lower bound.
	List(ctx context.Context, container, prefix string, since time.Time) ([]Object, error)
	Ping(ctx context.Context) error
	Close() error
}
