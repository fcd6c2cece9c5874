package sampling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lid-trainer/backend/internal/domain/question"
)

const (
	MinQuestions      = 1
	MaxQuestions      = 100
	MinStateQuestions = 3
	MaxStateQuestions = 5
)

var ErrInvalidConfig = errors.New("invalid sampling configuration")

// ConfigError lists every violated constraint of a Config.
type ConfigError struct {
	Violations []string
}

func (e *ConfigError) Error() string {
	return ErrInvalidConfig.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

type Config struct {
	State         string // two-letter state code, "" for general questions only
	QuestionCount int
	Language      string
}

// DefaultConfig is a general 33-question exam in German.
func DefaultConfig() Config {
	return Config{QuestionCount: 33, Language: question.Canonical}
}

func (c Config) Validate() error {
	var v []string
	if c.State != "" && !question.IsState(c.State) {
		v = append(v, fmt.Sprintf("state %q is not a federal state code", c.State))
	}
	if c.QuestionCount < MinQuestions || c.QuestionCount > MaxQuestions {
		v = append(v, fmt.Sprintf("question count %d outside [%d, %d]", c.QuestionCount, MinQuestions, MaxQuestions))
	}
	if !question.IsLanguage(c.Language) {
		v = append(v, fmt.Sprintf("language %q is not supported", c.Language))
	}
	if len(v) > 0 {
		return &ConfigError{Violations: v}
	}
	return nil
}
