package profile

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
	"gopkg.in/yaml.v3"
)

// Loader loads and manages profiles from YAML files.
type Loader struct {
	path       string
	safePath   *safepath.SafePath
	set        *CompiledSet
	mu         sync.RWMutex
	lastHash   []byte
	lastLoad   time.Time
	validators []ConfigValidator
	onChange   []func(*CompiledSet)
	watchStop  chan struct{}
}

// ConfigValidator validates a profile configuration.
type ConfigValidator interface {
	Validate(config *Config) error
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithValidator adds a configuration validator.
func WithValidator(v ConfigValidator) LoaderOption {
	return func(l *Loader) {
		l.validators = append(l.validators, v)
	}
}

// WithOnChange adds a callback for profile changes.
func WithOnChange(fn func(*CompiledSet)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// NewLoader creates a new profile loader. The profile file is resolved
// relative to basePath and may not escape it.
func NewLoader(basePath, profileFile string, opts ...LoaderOption) (*Loader, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	l := &Loader{
		path:       profileFile,
		safePath:   sp,
		validators: make([]ConfigValidator, 0),
		onChange:   make([]func(*CompiledSet), 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load loads the profiles from the file. Unchanged file contents return
// the cached compiled set.
func (l *Loader) Load(ctx context.Context) (*CompiledSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.safePath.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	hash := sha256.Sum256(data)
	if l.set != nil && string(hash[:]) == string(l.lastHash) {
		return l.set, nil
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}

	for _, v := range l.validators {
		if err := v.Validate(&config); err != nil {
			return nil, fmt.Errorf("profile validation failed: %w", err)
		}
	}

	compiled, err := NewCompiledSet(&config)
	if err != nil {
		return nil, fmt.Errorf("compiling profiles: %w", err)
	}

	compiled.hash = fmt.Sprintf("%x", hash)

	l.set = compiled
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	for _, fn := range l.onChange {
		fn(compiled)
	}

	return compiled, nil
}

// Get returns the current compiled set without reloading.
func (l *Loader) Get() *CompiledSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}

// Reload reloads the profiles from the file.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// Watch starts polling for profile file changes.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	l.watchStop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.watchStop:
				return
			case <-ticker.C:
				if _, err := l.Load(ctx); err != nil {
					// Keep watching; the previous set stays active
					_ = err
				}
			}
		}
	}()
}

// StopWatch stops watching for profile changes.
func (l *Loader) StopWatch() {
	if l.watchStop != nil {
		close(l.watchStop)
	}
}

// ParseYAML parses a YAML profile configuration.
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultConfigValidator validates profile configuration.
type DefaultConfigValidator struct{}

// Validate validates the profile configuration.
func (v *DefaultConfigValidator) Validate(config *Config) error {
	if config.Version == "" {
		return fmt.Errorf("profile version is required")
	}

	for name, p := range config.Profiles {
		if name == "" {
			return fmt.Errorf("profile name is required")
		}
		for key := range p.Vars {
			if key == "" {
				return fmt.Errorf("profile %q: empty variable name", name)
			}
			if strings.ContainsAny(key, "=\x00") {
				return fmt.Errorf("profile %q: invalid variable name %q", name, key)
			}
		}
	}

	return nil
}

// ExampleConfig returns an example profile configuration.
func ExampleConfig() *Config {
	return &Config{
		Version: "1.0",
		Metadata: Metadata{
			Name:        "example-profiles",
			Description: "Example environment profiles",
		},
		Profiles: map[string]ProfileConfig{
			"base": {
				Description: "Common build environment",
				Vars: map[string]string{
					"LANG":     "C.UTF-8",
					"CI":       "true",
					"TMPDIR":   "/tmp",
					"NO_PROXY": "localhost,127.0.0.1",
				},
			},
			"maven": {
				Description: "Maven builds",
				Extends:     "base",
				Vars: map[string]string{
					"JAVA_HOME":  "/opt/jdk17",
					"PATH+maven": "/opt/maven/bin",
					"MAVEN_OPTS": "-Xmx1g",
				},
			},
		},
	}
}
