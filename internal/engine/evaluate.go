package engine

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNonFinite      = errors.New("result is not finite")
)

// resultPlaces is the number of decimal places results are rounded to.
const resultPlaces = 10

// EvaluationError reports why a formula could not be reduced to a number.
type EvaluationError struct {
	Expression string
	Pos        int
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q at offset %d: %v", e.Expression, e.Pos, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Evaluate reduces an infix formula over + - * / to a number using float64
// arithmetic with the usual precedence and left associativity. A trailing
// operator run is ignored and an empty formula is 0. Finite results are
// rounded to ten decimal places.
func Evaluate(expr string) (float64, error) {
	src := trimOperators(expr)
	if src == "" {
		return 0, nil
	}

	p := &parser{input: src}
	value, err := p.parseExpression()
	if err == nil && !p.isEnd() {
		err = p.fail(ErrSyntax)
	}
	if err != nil {
		return 0, err
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &EvaluationError{Expression: src, Pos: len(src), Err: ErrNonFinite}
	}

	return roundFixed(value, resultPlaces), nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) isEnd() bool { return p.pos >= len(p.input) }

func (p *parser) peek() byte {
	if p.isEnd() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) fail(err error) error {
	return &EvaluationError{Expression: p.input, Pos: p.pos, Err: err}
}

// next consumes an operator. "--" and "++" are rejected: they never denote
// two signs.
func (p *parser) next(ops string) (byte, bool, error) {
	c := p.peek()
	if c == 0 || !strings.ContainsRune(ops, rune(c)) {
		return 0, false, nil
	}
	if (c == '+' || c == '-') && p.pos+1 < len(p.input) && p.input[p.pos+1] == c {
		return 0, false, p.fail(ErrSyntax)
	}
	p.pos++
	return c, true, nil
}

func (p *parser) parseExpression() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		op, ok, err := p.next("+-")
		if err != nil {
			return 0, err
		}
		if !ok {
			return value, nil
		}

		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += rhs
		} else {
			value -= rhs
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		at := p.pos
		op, ok, err := p.next("*/")
		if err != nil {
			return 0, err
		}
		if !ok {
			return value, nil
		}

		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			value *= rhs
			continue
		}
		if rhs == 0 {
			return 0, &EvaluationError{Expression: p.input, Pos: at, Err: ErrDivisionByZero}
		}
		value /= rhs
	}
}

func (p *parser) parseUnary() (float64, error) {
	op, ok, err := p.next("+-")
	if err != nil {
		return 0, err
	}
	if !ok {
		return p.parseNumber()
	}

	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if op == '-' {
		return -value, nil
	}
	return value, nil
}

// parseNumber accepts digits [. digits] [e [sign] digits] or . digits.
// A leading zero followed by another digit is not a number.
func (p *parser) parseNumber() (float64, error) {
	start := p.pos

	intDigits := p.skipDigits()
	if intDigits > 1 && p.input[start] == '0' {
		p.pos = start
		return 0, p.fail(ErrSyntax)
	}

	fracDigits := 0
	if p.peek() == '.' {
		p.pos++
		fracDigits = p.skipDigits()
	}
	if intDigits == 0 && fracDigits == 0 {
		p.pos = start
		return 0, p.fail(ErrSyntax)
	}

	if c := p.peek(); c == 'e' || c == 'E' {
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.skipDigits() == 0 {
			return 0, p.fail(ErrSyntax)
		}
	}

	literal := p.input[start:p.pos]
	value, err := strconv.ParseFloat(strings.TrimSuffix(literal, "."), 64)
	if err != nil {
		// Out-of-range literals still parse to ±Inf; only syntax fails here.
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			p.pos = start
			return 0, p.fail(ErrSyntax)
		}
	}
	return value, nil
}

func (p *parser) skipDigits() int {
	n := 0
	for !p.isEnd() && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}

var ten = big.NewInt(10)

// roundFixed rounds x to places decimals the way fixed-point formatting does:
// the exact binary value is scaled and ties go away from zero. The decimal
// text is then parsed back into a float64.
func roundFixed(x float64, places int) float64 {
	if math.Abs(x) >= 1e21 {
		return x
	}

	scale := new(big.Int).Exp(ten, big.NewInt(int64(places)), nil)
	r := new(big.Rat).SetFloat64(math.Abs(x))
	r.Mul(r, new(big.Rat).SetInt(scale))

	n, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	// rem/denom >= 1/2
	if rem.Lsh(rem, 1).Cmp(r.Denom()) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	digits := n.String()
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	text := digits[:len(digits)-places] + "." + digits[len(digits)-places:]

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return x
	}
	if x < 0 {
		f = -f
	}
	return f
}

// FormatNumber renders f with the fewest digits that read back as f. Plain
// notation is used for magnitudes in [1e-6, 1e21); others use an exponent
// such as 1e+21 or 1.5e-7. Negative zero renders as "0".
func FormatNumber(f float64) string {
	switch {
	case f == 0:
		return "0"
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	e, _ := strconv.Atoi(exp)

	k := len(digits)
	n := e + 1

	var b strings.Builder
	b.WriteString(sign)
	switch {
	case k <= n && n <= 21:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		b.WriteString(digits[:n])
		b.WriteByte('.')
		b.WriteString(digits[n:])
	case -6 < n && n <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -n))
		b.WriteString(digits)
	default:
		b.WriteString(digits[:1])
		if k > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if n-1 >= 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(n - 1))
	}
	return b.String()
}
