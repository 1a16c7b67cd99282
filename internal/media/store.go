// Package media stores the binary artifacts of the catalog: covers,
// screenshots, archived metadata documents and theme images. Artifacts are
// addressed by a relative path like "covers/12.jpg" and served back under
// the same path.
package media

import (
	"context"
	"io"
)

// Store abstracts where artifacts live. Save returns the public URL path
// ("/" + relPath) so callers can persist it directly on the catalog row.
type Store interface {
	Save(ctx context.Context, relPath string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, string, error)
	Exists(ctx context.Context, relPath string) (bool, error)
	Remove(ctx context.Context, relPath string) error
	RemoveAll(ctx context.Context, prefix string) error
	List(ctx context.Context, dir string) ([]string, error)
}
