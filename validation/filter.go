package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/victoralfred/goenviron/overlay"
)

// PatternValidatorConfig configures the pattern validator.
type PatternValidatorConfig struct {
	// AllowedVars are variable names that are allowed.
	// Supports wildcards: "PATH", "LC_*", etc. Empty means allow all.
	AllowedVars []string

	// DeniedVars are variable names that are denied.
	// Supports wildcards: "*_SECRET*", "*_PASSWORD*", etc.
	DeniedVars []string
}

// PatternValidator rejects overlays containing variables outside the
// allowlist or matching the denylist.
type PatternValidator struct {
	allowed []*regexp.Regexp
	denied  []*regexp.Regexp
}

// NewPatternValidator creates a new pattern validator.
func NewPatternValidator(config *PatternValidatorConfig) *PatternValidator {
	if config == nil {
		config = &PatternValidatorConfig{
			DeniedVars: []string{
				"*_SECRET*",
				"*_PASSWORD*",
				"*_TOKEN*",
				"*_CREDENTIAL*",
				"LD_PRELOAD",
				"DYLD_*",
			},
		}
	}

	v := &PatternValidator{}
	for _, pattern := range config.AllowedVars {
		if re := wildcardToRegexp(pattern); re != nil {
			v.allowed = append(v.allowed, re)
		}
	}
	for _, pattern := range config.DeniedVars {
		if re := wildcardToRegexp(pattern); re != nil {
			v.denied = append(v.denied, re)
		}
	}
	return v
}

// Name returns the validator name.
func (v *PatternValidator) Name() string {
	return "pattern_validator"
}

// Priority returns the execution priority.
func (v *PatternValidator) Priority() int {
	return 20
}

// Validate checks every variable name against the configured patterns.
func (v *PatternValidator) Validate(ctx context.Context, o *overlay.Overlay) error {
	var firstErr error
	o.Each(func(key, value string) {
		if firstErr != nil {
			return
		}
		for _, re := range v.denied {
			if re.MatchString(key) {
				firstErr = fmt.Errorf("environment variable %q matches denied pattern", key)
				return
			}
		}
		if len(v.allowed) > 0 {
			for _, re := range v.allowed {
				if re.MatchString(key) {
					return
				}
			}
			firstErr = fmt.Errorf("environment variable %q not in allowlist", key)
		}
	})
	return firstErr
}

// Filter returns a new overlay containing only the entries whose names
// pass the allowlist and denylist. Casing of retained names is preserved.
func Filter(o *overlay.Overlay, allowed, denied []string) *overlay.Overlay {
	var allowedRe, deniedRe []*regexp.Regexp
	for _, p := range allowed {
		if re := wildcardToRegexp(p); re != nil {
			allowedRe = append(allowedRe, re)
		}
	}
	for _, p := range denied {
		if re := wildcardToRegexp(p); re != nil {
			deniedRe = append(deniedRe, re)
		}
	}

	result := overlay.New()
	o.Each(func(key, value string) {
		for _, re := range deniedRe {
			if re.MatchString(key) {
				return
			}
		}
		if len(allowedRe) > 0 {
			for _, re := range allowedRe {
				if re.MatchString(key) {
					result.Set(key, value)
					return
				}
			}
			return
		}
		result.Set(key, value)
	})
	return result
}

// wildcardToRegexp converts a wildcard pattern to a regexp.
func wildcardToRegexp(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, "\\*", ".*")
	escaped = "^" + escaped + "$"

	re, err := regexp.Compile(escaped)
	if err != nil {
		return nil
	}
	return re
}
