package engine

import (
	"fmt"
	"strings"
)

// Snapshot is a serialisable copy of an engine's state.
type Snapshot struct {
	Expression string    `json:"expression"`
	Current    string    `json:"current"`
	LastInput  InputKind `json:"last_input"`
	Display    string    `json:"display"`
}

// Snapshot captures the current state. The last evaluation error is not
// part of it.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Expression: e.expression,
		Current:    e.current,
		LastInput:  e.last,
		Display:    e.display,
	}
}

// Restore rebuilds an engine from s.
func Restore(s Snapshot) (*Engine, error) {
	if _, err := ParseInputKind(s.LastInput.String()); err != nil {
		return nil, err
	}
	if strings.IndexFunc(s.Expression, notFormulaRune) >= 0 {
		return nil, fmt.Errorf("invalid expression %q", s.Expression)
	}
	if s.Current == "" || strings.Count(s.Current, ".") > 1 {
		return nil, fmt.Errorf("invalid current operand %q", s.Current)
	}
	if s.Display == "" {
		return nil, fmt.Errorf("empty display")
	}

	return &Engine{
		expression: s.Expression,
		current:    s.Current,
		last:       s.LastInput,
		display:    s.Display,
	}, nil
}

// Results in exponent form ("1e+21") are carried into the formula, so e and E
// are valid formula characters.
func notFormulaRune(r rune) bool {
	return !strings.ContainsRune("0123456789.+-*/eE", r)
}
