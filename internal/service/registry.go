package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ParticipantRegistry holds the external analysts of a debate in a stable
// registration order. Iteration order matters: the consensus protocol's
// tie-breaks are defined on it.
type ParticipantRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]core.ParticipantEntry
	logger  *logging.Logger
}

// NewParticipantRegistry creates an empty registry.
func NewParticipantRegistry(logger *logging.Logger) *ParticipantRegistry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ParticipantRegistry{
		entries: make(map[string]core.ParticipantEntry),
		logger:  logger,
	}
}

// Register adds an external participant under its name. The reserved host
// name is refused before any network I/O so a remote participant cannot
// impersonate the orchestrator.
func (r *ParticipantRegistry) Register(p core.Participant, opts ...EntryOption) error {
	name := p.Name()
	if strings.EqualFold(name, core.HostAnalystName) {
		return core.ErrReservedName(name)
	}
	if strings.TrimSpace(name) == "" {
		return core.ErrValidation(core.CodeUnknownName, "participant name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return core.ErrValidation(core.CodeDuplicateName,
			fmt.Sprintf("participant %q already registered", name))
	}

	entry := core.ParticipantEntry{Participant: p}
	for _, opt := range opts {
		opt(&entry)
	}
	r.entries[name] = entry
	r.order = append(r.order, name)
	return nil
}

// EntryOption configures a registry entry.
type EntryOption func(*core.ParticipantEntry)

// WithOperationTimeout sets the per-operation deadline for one participant.
func WithOperationTimeout(d time.Duration) EntryOption {
	return func(e *core.ParticipantEntry) {
		e.OperationTimeout = d
	}
}

// Unregister removes a participant by name.
func (r *ParticipantRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return core.ErrValidation(core.CodeUnknownName,
			fmt.Sprintf("participant %q not registered", name))
	}
	r.remove(name)
	return nil
}

// Names returns participant names in registration order.
func (r *ParticipantRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the entry for a name.
func (r *ParticipantRegistry) Get(name string) (core.ParticipantEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// Len returns the number of registered participants.
func (r *ParticipantRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Preflight checks every participant concurrently, each bounded by
// core.PreflightTimeout. Participants that fail or time out are removed
// from the registry; the returned map carries their failure reasons.
// Single attempt, no retry.
func (r *ParticipantRegistry) Preflight(ctx context.Context) map[string]string {
	names := r.Names()
	if len(names) == 0 {
		return nil
	}

	var mu sync.Mutex
	failed := make(map[string]string)

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		entry, ok := r.Get(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, core.PreflightTimeout)
			defer cancel()

			err := entry.Participant.Preflight(opCtx)
			if err == nil {
				r.logger.Info("preflight passed", "participant", name)
				return nil
			}

			reason := fmt.Sprintf("preflight failed: %v", err)
			if opCtx.Err() == context.DeadlineExceeded {
				reason = fmt.Sprintf("preflight timeout (%s)", core.PreflightTimeout)
			}
			r.logger.Warn("preflight failed", "participant", name, "reason", reason)

			mu.Lock()
			failed[name] = reason
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // Goroutines never return errors; failures are collected.

	r.mu.Lock()
	for name := range failed {
		r.remove(name)
	}
	r.mu.Unlock()

	return failed
}

// remove drops a name; callers hold the write lock.
func (r *ParticipantRegistry) remove(name string) {
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
