// Package profile loads named sets of environment overrides from YAML
// files and applies them to overlays.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/victoralfred/goenviron/overlay"
)

// Config represents the YAML profile file structure.
type Config struct {
	Profiles map[string]ProfileConfig `yaml:"profiles"`
	Metadata Metadata                 `yaml:"metadata"`
	Version  string                   `yaml:"version"`
}

// Metadata contains profile file metadata.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Updated     string `yaml:"updated"`
}

// ProfileConfig defines a named set of overrides. Keys may use the
// NAME+SUFFIX merge form.
type ProfileConfig struct {
	Vars        map[string]string `yaml:"vars"`
	Description string            `yaml:"description"`
	Extends     string            `yaml:"extends"`
}

// CompiledSet is a validated, immutable set of profiles ready to apply.
type CompiledSet struct {
	profiles map[string]*Profile
	hash     string
}

// Profile is a single compiled profile.
type Profile struct {
	Name        string
	Description string
	vars        map[string]string
}

// NewCompiledSet compiles a configuration, resolving profile inheritance.
func NewCompiledSet(config *Config) (*CompiledSet, error) {
	set := &CompiledSet{
		profiles: make(map[string]*Profile, len(config.Profiles)),
	}

	for name := range config.Profiles {
		vars, err := resolveVars(config, name, nil)
		if err != nil {
			return nil, err
		}
		pc := config.Profiles[name]
		set.profiles[name] = &Profile{
			Name:        name,
			Description: pc.Description,
			vars:        vars,
		}
	}

	return set, nil
}

// resolveVars flattens the extends chain, parent vars first so the
// child's entries override them.
func resolveVars(config *Config, name string, seen []string) (map[string]string, error) {
	for _, s := range seen {
		if s == name {
			return nil, fmt.Errorf("profile inheritance cycle: %s", strings.Join(append(seen, name), " -> "))
		}
	}

	pc, ok := config.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}

	vars := make(map[string]string)
	if pc.Extends != "" {
		if _, ok := config.Profiles[pc.Extends]; !ok {
			return nil, fmt.Errorf("profile %q extends unknown profile %q", name, pc.Extends)
		}
		parent, err := resolveVars(config, pc.Extends, append(seen, name))
		if err != nil {
			return nil, err
		}
		for k, v := range parent {
			vars[k] = v
		}
	}
	for k, v := range pc.Vars {
		vars[k] = v
	}

	return vars, nil
}

// Get returns a profile by name.
func (s *CompiledSet) Get(name string) (*Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// Names returns the profile names in sorted order.
func (s *CompiledSet) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hash returns the content hash of the loaded file.
func (s *CompiledSet) Hash() string {
	return s.hash
}

// Apply applies the profile's overrides to the overlay.
func (p *Profile) Apply(o *overlay.Overlay) {
	o.OverrideAll(p.vars)
}

// Vars returns a copy of the profile's override map.
func (p *Profile) Vars() map[string]string {
	vars := make(map[string]string, len(p.vars))
	for k, v := range p.vars {
		vars[k] = v
	}
	return vars
}
