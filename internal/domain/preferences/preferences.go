package preferences

import (
	"fmt"
	"time"

	"github.com/lid-trainer/backend/internal/domain/question"
)

type Mode string

const (
	ModeStudy Mode = "study"
	ModeExam  Mode = "exam"
)

func (m Mode) Valid() bool {
	return m == ModeStudy || m == ModeExam
}

// Validate checks fields a client may change.
func (p *UserPreferences) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("preferences: unknown mode %q", p.Mode)
	}
	if !question.IsLanguage(p.Language) {
		return fmt.Errorf("preferences: unsupported language %q", p.Language)
	}
	return nil
}

// UserPreferences is the singleton settings record.
type UserPreferences struct {
	Mode     Mode                 `json:"appMode"`
	Language string               `json:"language"`
	Theme    string               `json:"theme"`
	LastUsed time.Time            `json:"lastUsed"`
	Extra    map[string]string    `json:"extra,omitempty"`
	Dates    map[string]time.Time `json:"dates,omitempty"`
}

// Default returns the preferences created on first access.
func Default(now time.Time) *UserPreferences {
	return &UserPreferences{
		Mode:     ModeStudy,
		Language: question.Canonical,
		Theme:    "system",
		LastUsed: now,
		Extra:    map[string]string{},
		Dates:    map[string]time.Time{},
	}
}

// Filters is the active browse filter set of study mode.
type Filters struct {
	State    string `json:"state,omitempty"`
	Category string `json:"category,omitempty"`
	Language string `json:"language,omitempty"`
}

// BrowsePosition is where study mode left off.
type BrowsePosition struct {
	Scope string `json:"scope"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
}
