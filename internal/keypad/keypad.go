// Package keypad maps button ids and keyboard key names onto engine inputs.
package keypad

import (
	"errors"
	"fmt"

	"go-chi-calculator/internal/engine"
)

var ErrUnknownKey = errors.New("unknown key")

type action func(e *engine.Engine) string

func digit(d byte) action {
	return func(e *engine.Engine) string { return e.Digit(d) }
}

func operator(op engine.Operator) action {
	return func(e *engine.Engine) string { return e.Operator(op) }
}

var (
	decimal = (*engine.Engine).Decimal
	reset   = (*engine.Engine).Clear
	equals  = (*engine.Engine).Equals
)

// keys holds both keyboard names and on-screen button ids.
var keys = map[string]action{
	".":      decimal,
	"+":      operator(engine.Add),
	"-":      operator(engine.Subtract),
	"*":      operator(engine.Multiply),
	"/":      operator(engine.Divide),
	"Enter":  equals,
	"=":      equals,
	"Escape": reset,

	"zero":     digit('0'),
	"one":      digit('1'),
	"two":      digit('2'),
	"three":    digit('3'),
	"four":     digit('4'),
	"five":     digit('5'),
	"six":      digit('6'),
	"seven":    digit('7'),
	"eight":    digit('8'),
	"nine":     digit('9'),
	"decimal":  decimal,
	"add":      operator(engine.Add),
	"subtract": operator(engine.Subtract),
	"multiply": operator(engine.Multiply),
	"divide":   operator(engine.Divide),
	"clear":    reset,
	"equals":   equals,
}

func init() {
	for d := byte('0'); d <= '9'; d++ {
		keys[string(rune(d))] = digit(d)
	}
}

// Known reports whether key is a recognised key name or button id.
func Known(key string) bool {
	_, ok := keys[key]
	return ok
}

// Press applies key to e and returns the display. Unknown keys leave e
// untouched and return ErrUnknownKey.
func Press(e *engine.Engine, key string) (string, error) {
	act, ok := keys[key]
	if !ok {
		return e.Display(), fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return act(e), nil
}

// Replay presses keys in order and returns the display after each one. It
// stops at the first unknown key.
func Replay(e *engine.Engine, seq []string) ([]string, error) {
	displays := make([]string, 0, len(seq))
	for _, key := range seq {
		out, err := Press(e, key)
		if err != nil {
			return displays, err
		}
		displays = append(displays, out)
	}
	return displays, nil
}

// Split expands compact arguments such as "12+3=" into single-character
// keys. Arguments that are themselves key names ("Enter", "clear") are kept
// whole.
func Split(args ...string) []string {
	var out []string
	for _, arg := range args {
		if Known(arg) {
			out = append(out, arg)
			continue
		}
		for _, r := range arg {
			out = append(out, string(r))
		}
	}
	return out
}
