package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option identifies one of the four answer choices of a question.
type Option uint8

const (
	OptionNone Option = iota
	OptionA
	OptionB
	OptionC
	OptionD
)

// Options lists the valid options in display order.
var Options = [...]Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption accepts "a".."d" in any case.
func ParseOption(s string) (Option, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return OptionA, nil
	case "b":
		return OptionB, nil
	case "c":
		return OptionC, nil
	case "d":
		return OptionD, nil
	}
	return OptionNone, fmt.Errorf("invalid answer option %q", s)
}

func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

func (o Option) String() string {
	switch o {
	case OptionA:
		return "a"
	case OptionB:
		return "b"
	case OptionC:
		return "c"
	case OptionD:
		return "d"
	}
	return ""
}

func (o Option) index() int {
	return int(o) - 1
}

func (o Option) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return []byte(`""`), nil
	}
	return json.Marshal(o.String())
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*o = OptionNone
		return nil
	}
	parsed, err := ParseOption(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalText lets Option be used as a JSON map key or value in text form.
func (o Option) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Option) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*o = OptionNone
		return nil
	}
	parsed, err := ParseOption(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
