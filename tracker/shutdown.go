package tracker

import (
	"fmt"
	"sync"

	"github.com/mobile-next/trackcli/utils"
)

// ShutdownHook collects cleanup functions to run when the process receives
// SIGINT/SIGTERM. Its main job here is making sure a running capture session
// gets stopped, so the writer's final flush happens even when the operator
// kills the process instead of typing stop.
type ShutdownHook struct {
	mu    sync.RWMutex
	hooks []namedHook
}

type namedHook struct {
	name string
	fn   func() error
}

// NewShutdownHook creates an empty hook registry.
func NewShutdownHook() *ShutdownHook {
	return &ShutdownHook{}
}

// Register adds a cleanup function. Hooks run in registration order, so
// register producers before the things they produce into.
func (s *ShutdownHook) Register(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
	utils.Verbose("Registered shutdown hook: %s", name)
}

// Run executes every registered hook, continuing past failures so cleanup is
// best-effort, then clears the registry. Returns an error if any hook failed.
func (s *ShutdownHook) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.hooks) == 0 {
		return nil
	}

	utils.Verbose("Running %d shutdown hook(s)", len(s.hooks))
	var errs []error
	for _, hook := range s.hooks {
		if err := hook.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
			utils.Error("Shutdown hook %s failed: %v", hook.name, err)
		}
	}
	s.hooks = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown failed with %d error(s): %v", len(errs), errs)
	}
	return nil
}

// Count returns the number of registered hooks.
func (s *ShutdownHook) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hooks)
}
