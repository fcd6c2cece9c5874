package question

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Number is the display number of a question: "42" for federal questions,
// "BY-3" for state-specific ones. The content files encode federal numbers
// as JSON integers, so both forms are accepted.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = Number(strconv.Itoa(i))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = Number(s)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if i, err := strconv.Atoi(string(n)); err == nil {
		return json.Marshal(i)
	}
	return json.Marshal(string(n))
}

// State returns the state code for state-specific numbers ("BY-3" → "BY").
func (n Number) State() (string, bool) {
	code, rest, ok := strings.Cut(string(n), "-")
	if !ok || rest == "" {
		return "", false
	}
	if _, err := strconv.Atoi(rest); err != nil {
		return "", false
	}
	code = strings.ToUpper(code)
	if !IsState(code) {
		return "", false
	}
	return code, true
}

// IsFederal reports whether the number is a plain integer.
func (n Number) IsFederal() bool {
	_, err := strconv.Atoi(string(n))
	return err == nil
}

// Translation duplicates the textual content of a question in another language.
type Translation struct {
	Question string `json:"question"`
	A        string `json:"a"`
	B        string `json:"b"`
	C        string `json:"c"`
	D        string `json:"d"`
	Context  string `json:"context,omitempty"`
}

// Question is an immutable content record from the question bank.
type Question struct {
	ID           string                 `json:"id"`
	Number       Number                 `json:"num"`
	Question     string                 `json:"question"`
	A            string                 `json:"a"`
	B            string                 `json:"b"`
	C            string                 `json:"c"`
	D            string                 `json:"d"`
	Solution     Option                 `json:"solution"`
	Category     string                 `json:"category"`
	Context      string                 `json:"context,omitempty"`
	Image        string                 `json:"image,omitempty"`
	Translations map[string]Translation `json:"translation,omitempty"`
}

var (
	ErrNoSolution    = errors.New("question has no valid solution")
	ErrEmptyCategory = errors.New("question category cannot be empty")
	ErrEmptyID       = errors.New("question id cannot be empty")
)

// Validate checks the content invariants of a question.
func (q *Question) Validate() error {
	if q.ID == "" {
		return ErrEmptyID
	}
	if !q.Solution.Valid() {
		return ErrNoSolution
	}
	if strings.TrimSpace(q.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// OptionText returns the canonical (German) text of an option.
func (q *Question) OptionText(o Option) string {
	if !o.Valid() {
		return ""
	}
	return [...]string{q.A, q.B, q.C, q.D}[o.index()]
}

// IsCorrect reports whether answer is the solution.
func (q *Question) IsCorrect(answer Option) bool {
	return answer.Valid() && answer == q.Solution
}

// StateCode returns the state the question belongs to, if any.
func (q *Question) StateCode() (string, bool) {
	return q.Number.State()
}

// Localized is the display text of a question in one language.
type Localized struct {
	Question string
	Options  [4]string
	Context  string
}

// Localize resolves the text for lang. Missing translation fields fall back
// to English and then to the German source text.
func (q *Question) Localize(lang string) Localized {
	out := Localized{
		Question: q.Question,
		Options:  [4]string{q.A, q.B, q.C, q.D},
		Context:  q.Context,
	}
	if lang == Canonical {
		return out
	}
	en := q.Translations[English]
	tr := q.Translations[lang]
	pick := func(fallback *string, values ...string) {
		for _, v := range values {
			if v != "" {
				*fallback = v
				return
			}
		}
	}
	pick(&out.Question, tr.Question, en.Question)
	pick(&out.Options[0], tr.A, en.A)
	pick(&out.Options[1], tr.B, en.B)
	pick(&out.Options[2], tr.C, en.C)
	pick(&out.Options[3], tr.D, en.D)
	pick(&out.Context, tr.Context, en.Context)
	return out
}
