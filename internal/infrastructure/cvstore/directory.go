package cvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/ports"
)

type layout struct {
	suffix string
	decode func([]byte) (*cv.Document, error)
}

// Candidate file names in lookup order.
var layouts = []layout{
	{suffix: "_native.md.json", decode: cv.Decode},
	{suffix: ".json", decode: cv.Decode},
	{suffix: ".yaml", decode: cv.DecodeYAML},
	{suffix: ".yml", decode: cv.DecodeYAML},
}

// DirectoryStore serves CV documents stored as files in one directory.
type DirectoryStore struct {
	dir string
}

var _ ports.CVStore = (*DirectoryStore)(nil)

// NewDirectoryStore binds a CV directory. An empty dir holds no CVs.
func NewDirectoryStore(dir string) *DirectoryStore {
	return &DirectoryStore{dir: dir}
}

// Sources lists the source ids that have a CV file.
func (s *DirectoryStore) Sources(ctx context.Context) ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cv dir: %w", err)
	}

	seen := map[string]struct{}{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := sourceID(entry.Name()); ok {
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Load decodes the first CV file found for source, or returns nil.
func (s *DirectoryStore) Load(ctx context.Context, source string) (*cv.Document, error) {
	if s.dir == "" || source == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, l := range layouts {
		path := filepath.Join(s.dir, source+l.suffix)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read cv %s: %w", path, err)
		}

		doc, err := l.decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode cv %s: %w", path, err)
		}
		return doc, nil
	}
	return nil, nil
}

func sourceID(name string) (string, bool) {
	for _, l := range layouts {
		if id, ok := strings.CutSuffix(name, l.suffix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
