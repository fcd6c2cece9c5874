package content

import "github.com/lid-trainer/backend/internal/domain/question"

type Pagination struct {
	Page           int  `json:"page"`
	TotalPages     int  `json:"totalPages"`
	TotalQuestions int  `json:"totalQuestions"`
	HasNext        bool `json:"hasNext"`
	HasPrev        bool `json:"hasPrev"`
}

// Page is one file of a paginated question scope.
type Page struct {
	Questions  []question.Question `json:"questions"`
	Pagination Pagination          `json:"pagination"`
	Language   string              `json:"language"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CategoryList struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
	Language   string     `json:"language"`
}

type StateSummary struct {
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// Metadata is the global summary written by the content generator.
type Metadata struct {
	Languages      []string       `json:"languages"`
	Categories     []Category     `json:"categories"`
	States         []StateSummary `json:"states"`
	PageSize       int            `json:"pageSize"`
	TotalQuestions int            `json:"totalQuestions"`
}
