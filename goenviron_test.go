package goenviron

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/victoralfred/goenviron/config"
)

func TestFromMap(t *testing.T) {
	env := FromMap(map[string]string{
		"PATH":      "/usr/bin",
		"JAVA_HOME": "/opt/jdk17",
	})

	if env.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", env.Len())
	}
	if got := env.Get("path"); got != "/usr/bin" {
		t.Errorf("Expected case-insensitive lookup to return /usr/bin, got %q", got)
	}
}

func TestFromEnviron(t *testing.T) {
	env := FromEnviron([]string{"A=1", "B=two", "MALFORMED"})

	if got := env.Get("A"); got != "1" {
		t.Errorf("Expected A=1, got %q", got)
	}
	if v, ok := env.Lookup("MALFORMED"); !ok || v != "" {
		t.Errorf("Expected MALFORMED present with empty value, got %q (present=%v)", v, ok)
	}
}

func TestFromHost(t *testing.T) {
	a := FromHost()
	b := FromHost()

	// Each call returns an independent mutable copy of the snapshot.
	a.Set("GOENVIRON_TEST_ONLY", "1")
	if _, ok := b.Lookup("GOENVIRON_TEST_ONLY"); ok {
		t.Error("Mutating one host copy must not affect another")
	}
}

func TestSentinel(t *testing.T) {
	s := Sentinel()

	if !IsSentinel(s) {
		t.Error("Expected Sentinel() to be recognized as sentinel")
	}
	if got := s.Get(NotApplicable); got != NotApplicable {
		t.Errorf("Expected %q entry, got %q", NotApplicable, got)
	}

	real := FromMap(map[string]string{"PATH": "/usr/bin"})
	if IsSentinel(real) {
		t.Error("Real overlay should not be a sentinel")
	}
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	snap, err := Fetch(ctx, NewLocalExecutor("local"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.Len() == 0 {
		t.Error("Expected non-empty snapshot")
	}

	sentinel, err := Fetch(ctx, nil)
	if err != nil {
		t.Fatalf("Nil peer fetch failed: %v", err)
	}
	if !IsSentinel(sentinel) {
		t.Error("Expected sentinel for nil peer")
	}
}

func TestMinimal(t *testing.T) {
	env := Minimal()

	for _, key := range []string{"PATH", "LANG", "HOME", "USER"} {
		if _, ok := env.Lookup(key); !ok {
			t.Errorf("Minimal environment missing %s", key)
		}
	}
}

func TestDiff(t *testing.T) {
	before := FromMap(map[string]string{"A": "1", "B": "2"})
	after := before.Clone()
	after.Set("A", "changed")
	after.Set("C", "3")
	after.Delete("B")

	added, changed, removed := Diff(before, after)

	if len(added) != 1 || added[0] != "C" {
		t.Errorf("Expected added [C], got %v", added)
	}
	if len(changed) != 1 || changed[0] != "A" {
		t.Errorf("Expected changed [A], got %v", changed)
	}
	if len(removed) != 1 || removed[0] != "B" {
		t.Errorf("Expected removed [B], got %v", removed)
	}
}

func TestNewFetcherFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetch.EnableMetrics = false
	cfg.Fetch.EnableTracing = false
	cfg.Fetch.EnableAudit = false
	cfg.Fetch.DefaultTimeout = 5 * time.Second

	fetcher, err := NewFetcherFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFetcherFromConfig failed: %v", err)
	}
	defer func() {
		if shutdownErr := fetcher.Shutdown(context.Background()); shutdownErr != nil {
			t.Errorf("Shutdown failed: %v", shutdownErr)
		}
	}()

	snap, err := fetcher.Fetch(context.Background(), NewLocalExecutor("agent"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.Len() == 0 {
		t.Error("Expected non-empty snapshot")
	}
}

func TestValidateOverlay(t *testing.T) {
	ctx := context.Background()

	good := FromMap(map[string]string{"PATH": "/usr/bin", "JAVA_HOME": "/opt/jdk17"})
	if err := ValidateOverlay(ctx, good); err != nil {
		t.Errorf("Expected valid overlay to pass, got %v", err)
	}

	bad := New()
	bad.Set("BAD=KEY", "1")
	if err := ValidateOverlay(ctx, bad); err == nil {
		t.Error("Expected key containing '=' to fail validation")
	}
}

func TestValidateEntry(t *testing.T) {
	if err := ValidateEntry("PATH+maven", "/opt/maven/bin"); err != nil {
		t.Errorf("Merge-form key should validate, got %v", err)
	}
	if err := ValidateEntry("BAD=KEY", "1"); err == nil {
		t.Error("Expected key containing '=' to be rejected")
	}
	if err := ValidateEntry("KEY", "a\x00b"); err == nil {
		t.Error("Expected value containing NUL to be rejected")
	}
}

func TestFilterOverlay(t *testing.T) {
	env := FromMap(map[string]string{
		"PATH":       "/usr/bin",
		"JAVA_HOME":  "/opt/jdk17",
		"API_SECRET": "hunter2",
	})

	filtered := FilterOverlay(env, nil, []string{"*_SECRET*"})

	if _, ok := filtered.Lookup("API_SECRET"); ok {
		t.Error("Expected denied entry to be filtered out")
	}
	if _, ok := filtered.Lookup("PATH"); !ok {
		t.Error("Expected PATH to survive filtering")
	}
	if _, ok := env.Lookup("API_SECRET"); !ok {
		t.Error("Filtering must not mutate the source overlay")
	}
}

// rogueExecutor returns a snapshot the validators must refuse.
type rogueExecutor struct{}

func (rogueExecutor) Name() string { return "rogue" }

func (rogueExecutor) Call(ctx context.Context, fn SnapshotFunc) (map[string]string, error) {
	return map[string]string{"BAD=KEY": "1"}, nil
}

func TestNewFetcherFromConfig_ValidatesSnapshots(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetch.EnableMetrics = false
	cfg.Fetch.EnableTracing = false
	cfg.Fetch.EnableAudit = false

	fetcher, err := NewFetcherFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFetcherFromConfig failed: %v", err)
	}
	defer func() {
		if shutdownErr := fetcher.Shutdown(context.Background()); shutdownErr != nil {
			t.Errorf("Shutdown failed: %v", shutdownErr)
		}
	}()

	if _, err := fetcher.Fetch(context.Background(), rogueExecutor{}); err == nil {
		t.Error("Expected snapshot with invalid key to fail validation")
	}

	if _, err := fetcher.Fetch(context.Background(), NewLocalExecutor("agent")); err != nil {
		t.Errorf("Valid snapshot should pass the validation hook: %v", err)
	}
}

func TestLoadProfilesFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	data := []byte("version: \"1.0\"\nprofiles:\n  dev:\n    vars:\n      DEBUG: \"1\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write profiles: %v", err)
	}

	loader, err := LoadProfilesFromPath(path)
	if err != nil {
		t.Fatalf("LoadProfilesFromPath failed: %v", err)
	}

	set, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dev, ok := set.Get("dev")
	if !ok {
		t.Fatal("Expected dev profile")
	}

	env := New()
	dev.Apply(env)
	if got := env.Get("DEBUG"); got != "1" {
		t.Errorf("Expected DEBUG=1, got %q", got)
	}
}

func TestExampleProfiles(t *testing.T) {
	cfg := ExampleProfiles()

	if cfg.Version == "" {
		t.Error("Example config should carry a version")
	}
	if len(cfg.Profiles) == 0 {
		t.Error("Example config should define profiles")
	}
}

func TestVersion(t *testing.T) {
	if Version() == "" {
		t.Error("Expected non-empty version")
	}
}
