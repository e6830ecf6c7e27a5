// Package surveypkg loads versioned survey definitions and renders them for a
// specific respondent.
package surveypkg

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
)

// Placeholders substituted into survey JSON by Render.
const (
	PlaceholderExternalUserID     = "{External_User_Id}"
	PlaceholderLegacyUserID       = "{Specific_QQId}"
	PlaceholderVersion            = "{Survey_Version}"
	PlaceholderVersionDescription = "{Survey_Version_Description}"
	PlaceholderReleaseDate        = "{Survey_Release_Date}"
)

// Survey is one released version of the questionnaire.
type Survey struct {
	Version     string
	Description string
	ReleaseDate time.Time
	JSON        string
}

// Render returns the survey JSON with respondent and version placeholders filled in.
func (s *Survey) Render(externalUserID string) string {
	r := strings.NewReplacer(
		PlaceholderExternalUserID, externalUserID,
		PlaceholderLegacyUserID, externalUserID,
		PlaceholderVersion, s.Version,
		PlaceholderVersionDescription, s.Description,
		PlaceholderReleaseDate, s.ReleaseDate.UTC().Format("2006-01-02"),
	)
	return r.Replace(s.JSON)
}

// Package is an immutable snapshot of every survey version in a package file.
type Package struct {
	Name          string
	LatestVersion string
	Fingerprint   uint64

	surveys map[string]*Survey
}

type fileSurvey struct {
	Description string `json:"description"`
	ReleaseDate string `json:"releaseDate"`
	JSON        string `json:"json"`
}

type fileFormat struct {
	Name      string                `json:"name"`
	LatestVer string                `json:"latestVer"`
	Surveys   map[string]fileSurvey `json:"surveys"`
}

// Parse decodes a package file. Release dates are unix seconds.
func Parse(raw []byte) (*Package, error) {
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("surveypkg: decode: %w", err)
	}
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.LatestVer) == "" || len(f.Surveys) == 0 {
		return nil, fmt.Errorf("surveypkg: package needs name, latestVer and at least one survey")
	}
	if _, ok := f.Surveys[f.LatestVer]; !ok {
		return nil, fmt.Errorf("surveypkg: latest version %q has no survey", f.LatestVer)
	}

	pkg := &Package{
		Name:          f.Name,
		LatestVersion: f.LatestVer,
		Fingerprint:   xxhash.Checksum64(raw),
		surveys:       make(map[string]*Survey, len(f.Surveys)),
	}
	for ver, s := range f.Surveys {
		secs, err := strconv.ParseInt(strings.TrimSpace(s.ReleaseDate), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("surveypkg: version %s: invalid release date %q", ver, s.ReleaseDate)
		}
		pkg.surveys[ver] = &Survey{
			Version:     ver,
			Description: s.Description,
			ReleaseDate: time.Unix(secs, 0).UTC(),
			JSON:        s.JSON,
		}
	}
	return pkg, nil
}

// Latest returns the survey named by LatestVersion.
func (p *Package) Latest() *Survey {
	return p.surveys[p.LatestVersion]
}

// Get returns the survey for version, if present.
func (p *Package) Get(version string) (*Survey, bool) {
	s, ok := p.surveys[version]
	return s, ok
}

// IsVersionValid reports whether version names a survey in the package.
func (p *Package) IsVersionValid(version string) bool {
	if p == nil || strings.TrimSpace(version) == "" {
		return false
	}
	_, ok := p.surveys[version]
	return ok
}

// Versions lists the package's versions in lexical order.
func (p *Package) Versions() []string {
	out := make([]string, 0, len(p.surveys))
	for v := range p.surveys {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
