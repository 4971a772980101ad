// Package password holds the reset-form password rules.
//
// Validate is pure: the same (password, confirm) pair always yields the same
// Result, so it can run on every keystroke and again as the commit gate.
package password

import (
	"strings"
	"unicode/utf8"
)

// MinLength is the minimum number of characters
const MinLength = 8

// SpecialCharacters is the fixed symbol set accepted by the special rule
const SpecialCharacters = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// Strength labels
const (
	LabelWeak   = "Fraca"
	LabelMedium = "Média"
	LabelStrong = "Forte"
)

// Result is the per-rule outcome for one candidate
type Result struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
	Match     bool `json:"match"`
}

// Strength is the visual indicator derived from a Result
type Strength struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}

func Validate(password, confirmPassword string) Result {
	r := Result{
		Length: utf8.RuneCountInString(password) >= MinLength,
		Match:  confirmPassword != "" && confirmPassword == password,
	}
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			r.Uppercase = true
		case c >= 'a' && c <= 'z':
			r.Lowercase = true
		case c >= '0' && c <= '9':
			r.Number = true
		case strings.ContainsRune(SpecialCharacters, c):
			r.Special = true
		}
	}
	return r
}

// Score counts the satisfied character and length rules, match excluded
func (r Result) Score() int {
	n := 0
	for _, ok := range []bool{r.Length, r.Uppercase, r.Lowercase, r.Number, r.Special} {
		if ok {
			n++
		}
	}
	return n
}

// Satisfied is the submission gate: every rule including match
func (r Result) Satisfied() bool {
	return r.Score() == 5 && r.Match
}

// Failed lists the names of the rules that did not pass
func (r Result) Failed() []string {
	var failed []string
	if !r.Length {
		failed = append(failed, "length")
	}
	if !r.Uppercase {
		failed = append(failed, "uppercase")
	}
	if !r.Lowercase {
		failed = append(failed, "lowercase")
	}
	if !r.Number {
		failed = append(failed, "number")
	}
	if !r.Special {
		failed = append(failed, "special")
	}
	if !r.Match {
		failed = append(failed, "match")
	}
	return failed
}

// Strength has no bearing on Satisfied
func (r Result) Strength() Strength {
	pct := r.Score() * 100 / 5
	switch {
	case pct < 40:
		return Strength{Percent: pct, Label: LabelWeak}
	case pct < 80:
		return Strength{Percent: pct, Label: LabelMedium}
	default:
		return Strength{Percent: pct, Label: LabelStrong}
	}
}
