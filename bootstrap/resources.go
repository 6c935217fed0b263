package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/artpar/anvil/core/resource"
)

// LoadResources returns embedded followed by every resource defined under
// dir. A missing dir is not an error.
func LoadResources(dir string, embedded []*resource.Resource, logger zerolog.Logger) ([]*resource.Resource, error) {
	out := append([]*resource.Resource(nil), embedded...)

	if dir == "" {
		return out, nil
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("dir", dir).Msg("resources directory not found")
			return out, nil
		}
		return nil, fmt.Errorf("resources dir: %w", err)
	}

	loaded, err := resource.ParseDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	for _, res := range loaded {
		logger.Debug().Str("model", res.Model()).Str("slug", res.Slug()).Msg("resource loaded")
	}

	return append(out, loaded...), nil
}
