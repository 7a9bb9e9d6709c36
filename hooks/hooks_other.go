//go:build !windows && !darwin

package hooks

import (
	"fmt"
	"runtime"

	"github.com/mobile-next/trackcli/tracker"
)

// Sources has no native input backend on this platform.
func Sources(cfg tracker.SourceConfig) []tracker.Source {
	return []tracker.Source{unsupportedSource{}}
}

type unsupportedSource struct{}

func (unsupportedSource) Name() string {
	return "input-hooks"
}

func (unsupportedSource) Start(emit func(tracker.Event)) error {
	return fmt.Errorf("input capture is not supported on %s", runtime.GOOS)
}

func (unsupportedSource) Stop() {
}
