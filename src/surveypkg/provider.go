package surveypkg

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/logging"
)

// Provider holds the current Package snapshot. Readers call Current once per
// request and keep using that snapshot.
type Provider struct {
	path    string
	current atomic.Pointer[Package]
	log     zerolog.Logger
}

// NewProvider creates a provider for the package file at path. It does not load.
func NewProvider(path string) *Provider {
	return &Provider{path: path, log: logging.For("surveypkg")}
}

// Current returns the loaded snapshot or nil before the first successful load.
func (p *Provider) Current() *Package {
	return p.current.Load()
}

// Set installs pkg as the current snapshot.
func (p *Provider) Set(pkg *Package) {
	p.current.Store(pkg)
}

// Reload re-reads the package file. The previous snapshot stays in place when
// the file is unreadable or invalid. It reports whether the snapshot changed.
func (p *Provider) Reload() (bool, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return false, fmt.Errorf("surveypkg: read %s: %w", p.path, err)
	}
	pkg, err := Parse(raw)
	if err != nil {
		return false, err
	}

	if old := p.current.Load(); old != nil && old.Fingerprint == pkg.Fingerprint {
		return false, nil
	}
	p.current.Store(pkg)

	for _, v := range pkg.Versions() {
		s, _ := pkg.Get(v)
		p.log.Info().
			Str("version", v).
			Str("description", s.Description).
			Str("release_date", s.ReleaseDate.Format("2006-01-02")).
			Msg("survey version loaded")
	}
	p.log.Info().Str("package", pkg.Name).Str("latest", pkg.LatestVersion).Msg("survey package loaded")
	return true, nil
}
