package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/victoralfred/goenviron/overlay"
)

// EntryValidatorConfig configures the entry validator.
type EntryValidatorConfig struct {
	// MaxVars is the maximum number of variables in an overlay.
	MaxVars int

	// MaxKeyLength is the maximum length of a variable name.
	MaxKeyLength int

	// MaxValueLength is the maximum length of a variable value.
	MaxValueLength int

	// MaxTotalSize is the maximum combined size of all keys and values.
	MaxTotalSize int

	// StrictKeys requires names to be POSIX-style identifiers. When
	// false, any key without '=' or NUL is accepted, matching what
	// most platforms tolerate in practice.
	StrictKeys bool
}

// EntryValidator validates the entries of an overlay.
type EntryValidator struct {
	config *EntryValidatorConfig
}

// NewEntryValidator creates a new entry validator.
func NewEntryValidator(config *EntryValidatorConfig) *EntryValidator {
	if config == nil {
		config = &EntryValidatorConfig{
			MaxVars:        1000,
			MaxKeyLength:   256,
			MaxValueLength: 128 * 1024,
			MaxTotalSize:   1024 * 1024,
			StrictKeys:     false,
		}
	}
	return &EntryValidator{config: config}
}

// Name returns the validator name.
func (v *EntryValidator) Name() string {
	return "entry_validator"
}

// Priority returns the execution priority.
func (v *EntryValidator) Priority() int {
	return 10
}

// Validate validates all entries of an overlay.
func (v *EntryValidator) Validate(ctx context.Context, o *overlay.Overlay) error {
	if o.Len() > v.config.MaxVars {
		return fmt.Errorf("too many environment variables (%d > %d)",
			o.Len(), v.config.MaxVars)
	}

	total := 0
	var firstErr error
	o.Each(func(key, value string) {
		if firstErr != nil {
			return
		}
		total += len(key) + len(value)
		firstErr = v.ValidateEntry(key, value)
	})
	if firstErr != nil {
		return firstErr
	}

	if v.config.MaxTotalSize > 0 && total > v.config.MaxTotalSize {
		return fmt.Errorf("environment too large (%d > %d bytes)",
			total, v.config.MaxTotalSize)
	}

	return nil
}

// ValidateEntry validates a single key/value pair. The key may use the
// NAME+SUFFIX merge form; the portion before the '+' is checked as the
// variable name.
func (v *EntryValidator) ValidateEntry(key, value string) error {
	if len(key) > v.config.MaxKeyLength {
		return fmt.Errorf("environment key %q too long (%d > %d)",
			key, len(key), v.config.MaxKeyLength)
	}
	if len(value) > v.config.MaxValueLength {
		return fmt.Errorf("environment value for %q too long (%d > %d)",
			key, len(value), v.config.MaxValueLength)
	}

	name := key
	if idx := strings.IndexByte(key, '+'); idx > 0 {
		name = key[:idx]
	}
	if err := validateKey(name, v.config.StrictKeys); err != nil {
		return err
	}

	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("value for %q contains null byte", key)
	}

	return nil
}

func validateKey(key string, strict bool) error {
	if len(key) == 0 {
		return fmt.Errorf("empty environment key")
	}
	if strings.ContainsAny(key, "=\x00") {
		return fmt.Errorf("invalid environment key %q", key)
	}
	if strict && !isIdentifier(key) {
		return fmt.Errorf("environment key %q is not a valid identifier", key)
	}
	return nil
}

// isIdentifier checks the POSIX name form: letter or underscore first,
// alphanumerics and underscores after.
func isIdentifier(key string) bool {
	first := key[0]
	if !((first >= 'a' && first <= 'z') ||
		(first >= 'A' && first <= 'Z') ||
		first == '_') {
		return false
	}

	for i := 1; i < len(key); i++ {
		c := key[i]
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_') {
			return false
		}
	}

	return true
}
