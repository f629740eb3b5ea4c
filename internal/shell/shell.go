// Package shell holds the tab selection of one operator session: which
// resource manager is visible, and the notifications waiting to be shown.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"admin-dashboard/internal/resource"
)

type Tab string

const (
	TabUsers    Tab = "users"
	TabProducts Tab = "products"
)

var (
	ErrUnknownTab = errors.New("unknown tab")
	// ErrInactiveTab is returned when an action targets a tab that is not the
	// visible one.
	ErrInactiveTab = errors.New("that tab is no longer open, nothing was changed")
)

// Factory builds a fresh manager reporting to the given notifier.
type Factory func(resource.Notifier) resource.Controller

type TabSpec struct {
	Tab     Tab
	Label   string
	Factory Factory
}

type TabInfo struct {
	Tab    Tab
	Label  string
	Active bool
}

// Shell is a single-selection tab model. Activating a tab that is not the
// current one builds a new manager for it and mounts it, so a tab always
// shows a fresh snapshot and an empty form when it is switched to.
type Shell struct {
	specs []TabSpec
	inbox *resource.Inbox

	mu     sync.Mutex
	active Tab
	panes  map[Tab]resource.Controller
}

// New returns a shell whose first tab is active but not yet mounted.
func New(specs ...TabSpec) *Shell {
	s := &Shell{
		specs: specs,
		inbox: &resource.Inbox{},
		panes: make(map[Tab]resource.Controller, len(specs)),
	}
	if len(specs) > 0 {
		s.active = specs[0].Tab
	}
	return s
}

// Select makes tab the visible one and returns its manager. The manager is
// mounted when it was created by this call; a mount failure has already been
// reported to the inbox and is not returned.
func (s *Shell) Select(ctx context.Context, tab Tab) (resource.Controller, error) {
	spec, ok := s.spec(tab)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}

	s.mu.Lock()
	pane := s.panes[tab]
	created := false
	if tab != s.active || pane == nil {
		pane = spec.Factory(s.inbox)
		s.panes[tab] = pane
		s.active = tab
		created = true
	}
	s.mu.Unlock()

	if created {
		_ = pane.Mount(ctx)
	}
	return pane, nil
}

// Active returns the selected tab and its manager, which is nil until the
// tab has been selected once.
func (s *Shell) Active() (Tab, resource.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.panes[s.active]
}

// Open returns the manager of tab without selecting it. Unlike Select it
// never builds a manager: the tab must be the visible one.
func (s *Shell) Open(tab Tab) (resource.Controller, error) {
	if _, ok := s.spec(tab); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	pane, ok := s.Pane(tab)
	if !ok {
		return nil, ErrInactiveTab
	}
	return pane, nil
}

// Pane returns the manager of tab if the tab is currently visible.
func (s *Shell) Pane(tab Tab) (resource.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pane := s.panes[tab]
	return pane, pane != nil && tab == s.active
}

func (s *Shell) Tabs() []TabInfo {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	out := make([]TabInfo, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, TabInfo{Tab: spec.Tab, Label: spec.Label, Active: spec.Tab == active})
	}
	return out
}

func (s *Shell) Notify(n resource.Notification) {
	s.inbox.Notify(n)
}

// Drain returns and clears the pending notifications.
func (s *Shell) Drain() []resource.Notification {
	return s.inbox.Drain()
}

func (s *Shell) spec(tab Tab) (TabSpec, bool) {
	for _, spec := range s.specs {
		if spec.Tab == tab {
			return spec, true
		}
	}
	return TabSpec{}, false
}
