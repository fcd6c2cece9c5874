package testsession

import "github.com/lid-trainer/backend/internal/domain/question"

// SessionConfig holds the options for creating a normal exam session.
type SessionConfig struct {
	State         string // "" = general questions only
	QuestionCount int
	Language      string
	Seed          *int64 // nil = use the shared shuffle seed policy
}

// DefaultConfig returns a general 33-question exam in German.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		State:         "",
		QuestionCount: QuestionCount,
		Language:      question.Canonical,
		Seed:          nil,
	}
}
