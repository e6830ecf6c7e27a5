package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ltyyb/surveybot/src/logging"
)

// Module is one long-running part of the bot.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

var (
	errAlreadyStarted = errors.New("actions: manager already started")
	errAddAfterStart  = errors.New("actions: cannot add modules after start")
)

// Manager starts modules in registration order and stops whatever actually
// started in reverse.
type Manager struct {
	mu      sync.Mutex
	pending []Module
	running []Module
	live    bool
}

// NewManager returns a Manager holding mods. Nil entries are skipped.
func NewManager(mods ...Module) *Manager {
	m := &Manager{}
	for _, mod := range mods {
		m.pending = appendModule(m.pending, mod)
	}
	return m
}

func appendModule(list []Module, mod Module) []Module {
	if mod == nil {
		return list
	}
	return append(list, mod)
}

// Add queues mod behind the modules already registered.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live {
		return errAddAfterStart
	}
	m.pending = appendModule(m.pending, mod)
	return nil
}

// Names lists registered modules in start order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pending))
	for i, mod := range m.pending {
		out[i] = mod.Name()
	}
	return out
}

// Start brings every module up. A failure unwinds the ones already running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live {
		return errAlreadyStarted
	}

	log := logging.For("actions")
	for _, mod := range m.pending {
		if err := mod.Start(ctx); err != nil {
			log.Error().Err(err).Str("module", mod.Name()).Msg("start failed, unwinding")
			m.unwind(ctx)
			return fmt.Errorf("module %s failed: %w", mod.Name(), err)
		}
		log.Info().Str("module", mod.Name()).Msg("module started")
		m.running = append(m.running, mod)
	}
	m.live = true
	return nil
}

// Stop shuts the running modules down, last started first.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unwind(ctx)
	m.live = false
}

func (m *Manager) unwind(ctx context.Context) {
	log := logging.For("actions")
	for len(m.running) > 0 {
		last := m.running[len(m.running)-1]
		m.running = m.running[:len(m.running)-1]
		last.Stop(ctx)
		log.Info().Str("module", last.Name()).Msg("module stopped")
	}
}
