// Package engine implements the calculator input state machine: digit,
// decimal, operator, clear and equals presses mutate a running formula which
// is evaluated on demand. Every input returns the string to display.
package engine

import (
	"fmt"
	"strings"
)

// ErrorDisplay is shown when the formula cannot be evaluated.
const ErrorDisplay = "Error"

// InputKind classifies the most recently accepted input.
type InputKind int

const (
	KindNone InputKind = iota
	KindDigit
	KindOperator
	KindEquals
)

var kindNames = [...]string{
	KindNone:     "none",
	KindDigit:    "digit",
	KindOperator: "operator",
	KindEquals:   "equals",
}

func (k InputKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseInputKind is the inverse of InputKind.String.
func ParseInputKind(s string) (InputKind, error) {
	for k, name := range kindNames {
		if name == s {
			return InputKind(k), nil
		}
	}
	return KindNone, fmt.Errorf("unknown input kind %q", s)
}

// Operator is one of the four arithmetic operator symbols.
type Operator byte

const (
	Add      Operator = '+'
	Subtract Operator = '-'
	Multiply Operator = '*'
	Divide   Operator = '/'
)

// ParseOperator accepts exactly one of "+", "-", "*" or "/".
func ParseOperator(s string) (Operator, error) {
	if len(s) == 1 && Operator(s[0]).Valid() {
		return Operator(s[0]), nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

func (o Operator) Valid() bool {
	return isOperator(byte(o))
}

func (o Operator) String() string {
	return string(rune(o))
}

func isOperator(c byte) bool {
	return c == '+' || c == '-' || c == '*' || c == '/'
}

// trimOperators strips the trailing run of operator characters.
func trimOperators(s string) string {
	return strings.TrimRight(s, "+-*/")
}

// Engine holds the state of one calculator. The zero value is not ready for
// use; call New. An Engine is not safe for concurrent use.
type Engine struct {
	expression string
	current    string
	last       InputKind
	display    string
	err        error
}

// New returns a cleared engine.
func New() *Engine {
	e := &Engine{}
	e.Clear()
	return e
}

// Display returns the string most recently shown.
func (e *Engine) Display() string { return e.display }

// Err returns the evaluation failure of the most recent Equals, if any.
func (e *Engine) Err() error { return e.err }

// LastInput reports the kind of the most recently accepted input.
func (e *Engine) LastInput() InputKind { return e.last }

func (e *Engine) show(s string) string {
	e.display = s
	return s
}

// Digit handles a press of d ('0'..'9'). Other bytes are ignored.
func (e *Engine) Digit(d byte) string {
	if d < '0' || d > '9' {
		return e.display
	}
	s := string(rune(d))

	switch e.last {
	case KindNone, KindEquals:
		e.expression = s
		e.current = s
	case KindOperator:
		e.current = s
		e.expression += s
	default:
		switch {
		case e.current == "0" && d == '0':
			return e.display
		case e.current == "0":
			// Leading zero of the operand is replaced, never kept.
			e.current = s
			e.expression = e.expression[:max(len(e.expression)-1, 0)] + s
		default:
			e.current += s
			e.expression += s
		}
	}

	e.last = KindDigit
	return e.show(e.current)
}

// Decimal handles a press of the decimal point.
func (e *Engine) Decimal() string {
	switch {
	case e.last == KindEquals:
		e.expression = "0."
		e.current = "0."
	case strings.Contains(e.current, "."):
		return e.display
	case e.last == KindOperator || e.last == KindNone:
		e.current = "0."
		e.expression += "0."
	default:
		e.current += "."
		e.expression += "."
	}

	e.last = KindDigit
	return e.show(e.current)
}

// Operator handles a press of op. Invalid operators are ignored.
//
// After another operator, "-" is queued as the sign of the next operand
// unless the formula already ends in "-"; any other operator replaces the
// trailing operator run. In every other state the symbol is appended: after
// clear the formula is empty, so "-" starts a negative first operand, and
// after equals the formula holds the previous result.
func (e *Engine) Operator(op Operator) string {
	if !op.Valid() {
		return e.display
	}
	sym := op.String()

	if e.last == KindOperator {
		if op == Subtract && !strings.HasSuffix(e.expression, "-") {
			e.expression += sym
		} else {
			e.expression = trimOperators(e.expression) + sym
		}
	} else {
		e.expression += sym
	}

	e.current = sym
	e.last = KindOperator
	return e.show(sym)
}

// Clear resets the engine and returns "0".
func (e *Engine) Clear() string {
	e.expression = ""
	e.current = "0"
	e.last = KindNone
	e.err = nil
	return e.show("0")
}

// Equals evaluates the formula. The result becomes the new formula so a
// following operator chains from it; on failure the display is ErrorDisplay
// and the formula is emptied.
func (e *Engine) Equals() string {
	if e.last == KindOperator {
		e.expression = trimOperators(e.expression)
	}
	e.last = KindEquals
	e.err = nil

	if e.expression == "" {
		e.current = "0"
		return e.show("0")
	}

	result, err := Evaluate(e.expression)
	if err != nil {
		e.err = err
		e.expression = ""
		e.current = "0"
		return e.show(ErrorDisplay)
	}

	e.expression = FormatNumber(result)
	e.current = e.expression
	return e.show(e.expression)
}
