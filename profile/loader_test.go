package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/victoralfred/goenviron/overlay"
)

const testProfiles = `
version: "1.0"
metadata:
  name: test-profiles
profiles:
  base:
    description: Common environment
    vars:
      LANG: C.UTF-8
      CI: "true"
  maven:
    description: Maven builds
    extends: base
    vars:
      JAVA_HOME: /opt/jdk17
      PATH+maven: /opt/maven/bin
`

func writeProfiles(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	file := "profiles.yaml"
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write profile file: %v", err)
	}
	return dir, file
}

func TestLoader_Load(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)

	l, err := NewLoader(dir, file, WithValidator(&DefaultConfigValidator{}))
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	set, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(set.Names()) != 2 {
		t.Errorf("Expected 2 profiles, got %v", set.Names())
	}
	if set.Hash() == "" {
		t.Error("Expected non-empty content hash")
	}

	p, ok := set.Get("base")
	if !ok {
		t.Fatal("Expected base profile")
	}
	if p.Description != "Common environment" {
		t.Errorf("Unexpected description: %s", p.Description)
	}
}

func TestLoader_Inheritance(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)
	l, _ := NewLoader(dir, file)

	set, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p, ok := set.Get("maven")
	if !ok {
		t.Fatal("Expected maven profile")
	}

	vars := p.Vars()
	if vars["LANG"] != "C.UTF-8" {
		t.Error("Expected inherited LANG from base profile")
	}
	if vars["JAVA_HOME"] != "/opt/jdk17" {
		t.Error("Expected own JAVA_HOME")
	}
}

func TestLoader_InheritanceCycle(t *testing.T) {
	dir, file := writeProfiles(t, `
version: "1.0"
profiles:
  a:
    extends: b
    vars: {X: "1"}
  b:
    extends: a
    vars: {Y: "2"}
`)
	l, _ := NewLoader(dir, file)

	if _, err := l.Load(context.Background()); err == nil {
		t.Error("Expected error for inheritance cycle")
	}
}

func TestLoader_UnknownParent(t *testing.T) {
	dir, file := writeProfiles(t, `
version: "1.0"
profiles:
  a:
    extends: missing
    vars: {X: "1"}
`)
	l, _ := NewLoader(dir, file)

	_, err := l.Load(context.Background())
	if err == nil {
		t.Fatal("Expected error for unknown parent profile")
	}
	if !strings.Contains(err.Error(), `"a"`) || !strings.Contains(err.Error(), `"missing"`) {
		t.Errorf("Expected error to name the extending profile and the missing parent, got %v", err)
	}
}

func TestLoader_CachesUnchangedFile(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)
	l, _ := NewLoader(dir, file)

	first, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if first != second {
		t.Error("Expected cached set for unchanged file")
	}
}

func TestLoader_OnChange(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)

	var notified int
	l, _ := NewLoader(dir, file, WithOnChange(func(*CompiledSet) {
		notified++
	}))

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if notified != 1 {
		t.Errorf("Expected 1 change notification, got %d", notified)
	}
}

func TestLoader_ValidationFailure(t *testing.T) {
	dir, file := writeProfiles(t, `
profiles:
  a:
    vars: {X: "1"}
`)
	l, _ := NewLoader(dir, file, WithValidator(&DefaultConfigValidator{}))

	if _, err := l.Load(context.Background()); err == nil {
		t.Error("Expected error for missing version")
	}
}

func TestLoader_Get(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)
	l, _ := NewLoader(dir, file)

	if l.Get() != nil {
		t.Error("Expected nil set before first load")
	}

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Get() == nil {
		t.Error("Expected set after load")
	}
}

func TestProfile_Apply(t *testing.T) {
	dir, file := writeProfiles(t, testProfiles)
	l, _ := NewLoader(dir, file)

	set, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p, _ := set.Get("maven")

	o := overlay.New()
	o.Set("PATH", "/usr/bin")
	p.Apply(o)

	sep := string(os.PathListSeparator)
	if got := o.Get("PATH"); got != "/opt/maven/bin"+sep+"/usr/bin" {
		t.Errorf("Expected merged PATH, got '%s'", got)
	}
	if got := o.Get("JAVA_HOME"); got != "/opt/jdk17" {
		t.Errorf("Expected '/opt/jdk17', got '%s'", got)
	}
}

func TestParseYAML(t *testing.T) {
	config, err := ParseYAML([]byte(testProfiles))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if config.Version != "1.0" {
		t.Errorf("Expected version '1.0', got '%s'", config.Version)
	}
	if len(config.Profiles) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(config.Profiles))
	}
}

func TestExampleConfig(t *testing.T) {
	config := ExampleConfig()
	if err := (&DefaultConfigValidator{}).Validate(config); err != nil {
		t.Errorf("Example config should validate: %v", err)
	}
	if _, err := NewCompiledSet(config); err != nil {
		t.Errorf("Example config should compile: %v", err)
	}
}
