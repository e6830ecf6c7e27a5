// Package survey keeps the survey package snapshot fresh and prunes expired
// request links.
package survey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/actions/core"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

var _ core.Module = (*Module)(nil)

// Module reloads the package file on a timer.
type Module struct {
	cfg      *sharedconfig.SurveyConfig
	provider *surveypkg.Provider
	links    *store.Links

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewModule(cfg *sharedconfig.SurveyConfig, provider *surveypkg.Provider, links *store.Links) (*Module, error) {
	if cfg == nil {
		return nil, fmt.Errorf("survey: config is nil")
	}
	if cfg.ReloadInterval <= 0 {
		cfg.ReloadInterval = time.Minute
	}
	return &Module{cfg: cfg, provider: provider, links: links, log: logging.For("survey")}, nil
}

func (m *Module) Name() string { return "survey" }

// Start requires the first load to succeed; later failures keep the last good snapshot.
func (m *Module) Start(ctx context.Context) error {
	if m.provider.Current() == nil {
		if _, err := m.provider.Reload(); err != nil {
			return fmt.Errorf("survey: initial load: %w", err)
		}
	}

	runtimeCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runtimeCtx)
	}()
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Module) run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Module) tick(ctx context.Context) {
	if _, err := m.provider.Reload(); err != nil {
		m.log.Warn().Err(err).Msg("reload failed, keeping previous package")
	}
	if m.links == nil {
		return
	}
	if n, err := m.links.Purge(ctx); err != nil {
		m.log.Warn().Err(err).Msg("link purge failed")
	} else if n > 0 {
		m.log.Debug().Int64("purged", n).Msg("expired request links removed")
	}
}
