// Package archive keeps a copy of each uploaded timetable source file so a
// saved timetable can link back to what it was extracted from.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// Archiver stores a source file under name and returns a URL for it.
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// objectKey builds "uploads/<slug>/<slug>" from a slash-separated name.
func objectKey(name string) string {
	parts := strings.Split(name, "/")
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, "uploads")
	for _, p := range parts {
		if s := model.Slug(p); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 1 {
		clean = append(clean, "file")
	}
	return path.Join(clean...)
}

// LocalArchive writes files below a directory on disk.
type LocalArchive struct {
	dir     string
	baseURL string
}

// NewLocalArchive creates an archive rooted at dir. When baseURL is set the
// returned URL is baseURL joined with the object key; otherwise it is the
// file path.
func NewLocalArchive(dir, baseURL string) *LocalArchive {
	return &LocalArchive{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (l *LocalArchive) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(name)
	dst := filepath.Join(l.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	log.Debug().Str("component", "archive").Str("key", key).Int("bytes", len(data)).Msg("archived source file")
	if l.baseURL != "" {
		return l.baseURL + "/" + key, nil
	}
	return dst, nil
}
