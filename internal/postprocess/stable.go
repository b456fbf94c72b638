package postprocess

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Stability polling defaults
const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 5
)

// WaitStable polls the sizes of paths until two consecutive polls agree and
// every file is non-empty. It gives up after attempts polls.
func WaitStable(ctx context.Context, fs afero.Fs, paths []string, interval time.Duration, attempts int) error {
	if len(paths) == 0 {
		return nil
	}
	if attempts < 2 {
		attempts = 2
	}

	var prev []int64
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		sizes := make([]int64, len(paths))
		for j, p := range paths {
			info, err := fs.Stat(p)
			if err != nil {
				sizes[j] = -1
				continue
			}
			sizes[j] = info.Size()
		}

		if prev != nil && sameNonZero(prev, sizes) {
			return nil
		}
		prev = sizes
	}

	return &ArtifactDiscoveryError{
		Dir:    filepath.Dir(paths[0]),
		Reason: ReasonNotStable,
	}
}

func sameNonZero(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] || b[i] <= 0 {
			return false
		}
	}
	return true
}
