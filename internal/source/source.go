// Package source resolves the letter content for a recipient and period.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weekletter/internal/letter"
	logx "weekletter/pkg/logx"
)

// Source yields the letter document for one recipient and period. The bool
// reports whether a letter exists at all; absence is not an error.
type Source interface {
	Fetch(ctx context.Context, recipient string, period letter.Period) (letter.Document, bool, error)
}

// Config selects and configures the content source.
type Config struct {
	Kind string // "dir"
	Dir  string
}

// New builds a Source from config.
func New(cfg Config, log logx.Logger) (Source, error) {
	switch cfg.Kind {
	case "", "dir":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("source: dir is required")
		}
		return &dirSource{dir: cfg.Dir, log: log}, nil
	default:
		return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// dirSource reads letters from a directory laid out as
// <dir>/<recipient>-<year>-W<week>.html (or .txt / .md).
type dirSource struct {
	dir string
	log logx.Logger
}

var dirExts = []string{".html", ".htm", ".md", ".txt"}

func (s *dirSource) Fetch(_ context.Context, recipient string, period letter.Period) (letter.Document, bool, error) {
	base := fmt.Sprintf("%s-%s", sanitize(recipient), period.String())
	for _, ext := range dirExts {
		path := filepath.Join(s.dir, base+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return letter.Document{}, false, fmt.Errorf("source: read %s: %w", path, err)
		}
		return letter.Document{
			Recipient: recipient,
			Period:    period,
			Content:   string(data),
		}, true, nil
	}
	return letter.Document{}, false, nil
}

// sanitize keeps recipient-derived file names path safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
