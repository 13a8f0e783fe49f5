package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"causemap/domain/config"
	pkgerrors "causemap/pkg/errors"
)

// Title is the display label of a node on the canvas.
type Title struct {
	value string
}

// NewTitle creates a validated title using default domain limits.
func NewTitle(value string) (Title, error) {
	return NewTitleWithConfig(value, config.DefaultDomainConfig())
}

// NewTitleWithConfig creates a validated title against explicit limits.
func NewTitleWithConfig(value string, cfg *config.DomainConfig) (Title, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return Title{}, pkgerrors.NewValidationError("title cannot be empty")
	}

	length := utf8.RuneCountInString(value)
	if length < cfg.MinTitleLength {
		return Title{}, fmt.Errorf("title too short: minimum %d characters required", cfg.MinTitleLength)
	}
	if length > cfg.MaxTitleLength {
		return Title{}, fmt.Errorf("title exceeds maximum length of %d characters", cfg.MaxTitleLength)
	}

	return Title{value: value}, nil
}

func (t Title) String() string { return t.value }

func (t Title) IsEmpty() bool { return t.value == "" }

func (t Title) Equals(other Title) bool { return t.value == other.value }

// Summary returns the title truncated to maxLength runes.
func (t Title) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if utf8.RuneCountInString(t.value) <= maxLength {
		return t.value
	}
	runes := []rune(t.value)
	return string(runes[:maxLength-3]) + "..."
}

func (t Title) MarshalJSON() ([]byte, error) {
	return marshalIDString(t.value)
}

func (t *Title) UnmarshalJSON(data []byte) error {
	v, err := unmarshalIDString(data, "Title")
	if err != nil {
		return err
	}
	t.value = v
	return nil
}
