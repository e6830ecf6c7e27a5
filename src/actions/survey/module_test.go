package survey

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	sharedconfig "github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/surveypkg"
	"github.com/ltyyb/surveybot/src/testutil"
)

const pkgV1 = `{"name":"entrance","latestVer":"1","surveys":{"1":{"description":"d","releaseDate":"1748779200","json":"{}"}}}`
const pkgV2 = `{"name":"entrance","latestVer":"2","surveys":{"1":{"description":"d","releaseDate":"1748779200","json":"{}"},"2":{"description":"e","releaseDate":"1748865600","json":"{}"}}}`

func TestModuleLoadsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entrance.json")
	if err := os.WriteFile(path, []byte(pkgV1), 0o644); err != nil {
		t.Fatal(err)
	}
	provider := surveypkg.NewProvider(path)
	m, err := NewModule(&sharedconfig.SurveyConfig{PackagePath: path, ReloadInterval: time.Hour}, provider, store.NewLinks(testutil.NewDB(t)))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(ctx)
	if got := provider.Current().LatestVersion; got != "1" {
		t.Fatalf("latest = %s", got)
	}

	if err := os.WriteFile(path, []byte(pkgV2), 0o644); err != nil {
		t.Fatal(err)
	}
	m.tick(ctx)
	if got := provider.Current().LatestVersion; got != "2" {
		t.Fatalf("latest after reload = %s", got)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.tick(ctx)
	if got := provider.Current().LatestVersion; got != "2" {
		t.Fatalf("broken file replaced snapshot, latest = %s", got)
	}
}

func TestModuleStartFailsWithoutPackage(t *testing.T) {
	provider := surveypkg.NewProvider(filepath.Join(t.TempDir(), "missing.json"))
	m, err := NewModule(&sharedconfig.SurveyConfig{}, provider, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing package file")
	}
}
