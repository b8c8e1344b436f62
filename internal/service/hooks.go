package service

import "github.com/sirupsen/logrus"

// HookQueue collects side-effect closures during a transaction and runs them
// only after the transaction has committed. A hook's failure is isolated: it
// is logged and the remaining hooks still run. Nothing here can roll back
// the already-committed state change.
//
// A transaction body that may be replayed after a rollback must Reset the
// queue on entry, or hooks from the aborted attempt fire twice.
type HookQueue struct {
	hooks []func() error
}

// Add registers a closure to run after commit.
func (h *HookQueue) Add(fn func() error) {
	h.hooks = append(h.hooks, fn)
}

// Reset drops hooks queued by an aborted transaction attempt.
func (h *HookQueue) Reset() {
	h.hooks = nil
}

// Run executes all registered hooks in order, logging failures.
func (h *HookQueue) Run() {
	for _, fn := range h.hooks {
		if err := fn(); err != nil {
			logrus.WithError(err).Warn("post-commit hook failed")
		}
	}
	h.hooks = nil
}
