package main

import (
	"fmt"
	"strconv"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

// scanToken scans one token from src, returning it and the number of bytes
// consumed; ok is false if src held only whitespace and comments.
// Procedures are scanned whole, with collection inhibited until the
// finished array is handed back to be rooted by the caller.
func (c *Context) scanToken(src []byte) (tok object.Object, n int, ok bool, err error) {
	sp := c.vm()
	defer sp.Mem.Inhibit()()
	sc := scanner{c: c, sp: sp, src: src}
	tok, ok, err = sc.next()
	return tok, sc.pos, ok, err
}

type scanner struct {
	c   *Context
	sp  *object.Space
	src []byte
	pos int
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (sc *scanner) peek(off int) (byte, bool) {
	if i := sc.pos + off; i < len(sc.src) {
		return sc.src[i], true
	}
	return 0, false
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.src) {
		b := sc.src[sc.pos]
		if b == '%' {
			for sc.pos < len(sc.src) && sc.src[sc.pos] != '\n' && sc.src[sc.pos] != '\r' {
				sc.pos++
			}
			continue
		}
		if !isSpace(b) {
			return
		}
		sc.pos++
	}
}

func (sc *scanner) syntaxError(mess string, args ...interface{}) error {
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	return fault.Errorf(fault.SyntaxError, "at offset %v: %v", sc.pos, mess)
}

func (sc *scanner) name(s string) object.Object { return sc.c.rt.names.Intern(s) }

func (sc *scanner) next() (object.Object, bool, error) {
	sc.skipSpace()
	b, ok := sc.peek(0)
	if !ok {
		return object.Null(), false, nil
	}
	switch b {
	case '(':
		return sc.str()
	case ')':
		return object.Null(), false, sc.syntaxError("unbalanced )")
	case '<':
		if b2, _ := sc.peek(1); b2 == '<' {
			sc.pos += 2
			return sc.name("<<").Cvx(), true, nil
		}
		return sc.hexString()
	case '>':
		if b2, _ := sc.peek(1); b2 == '>' {
			sc.pos += 2
			return sc.name(">>").Cvx(), true, nil
		}
		return object.Null(), false, sc.syntaxError("unbalanced >")
	case '[', ']':
		sc.pos++
		return sc.name(string(b)).Cvx(), true, nil
	case '{':
		return sc.procedure()
	case '}':
		return object.Null(), false, sc.syntaxError("unbalanced }")
	case '/':
		sc.pos++
		if b2, _ := sc.peek(0); b2 == '/' {
			sc.pos++
			v, err := sc.c.load(sc.name(sc.word()))
			return v, err == nil, err
		}
		return sc.name(sc.word()), true, nil
	}
	word := sc.word()
	if num, isNum := parseNumber(word); isNum {
		return num, true, nil
	}
	return sc.name(word).Cvx(), true, nil
}

func (sc *scanner) word() string {
	start := sc.pos
	for sc.pos < len(sc.src) {
		if b := sc.src[sc.pos]; isSpace(b) || isDelim(b) {
			break
		}
		sc.pos++
	}
	return string(sc.src[start:sc.pos])
}

func (sc *scanner) procedure() (object.Object, bool, error) {
	start := sc.pos
	sc.pos++ // {
	var elems []object.Object
	for {
		sc.skipSpace()
		b, ok := sc.peek(0)
		if !ok {
			sc.pos = start
			return object.Null(), false, sc.syntaxError("unterminated procedure")
		}
		if b == '}' {
			sc.pos++
			break
		}
		tok, ok, err := sc.next()
		if err != nil {
			return object.Null(), false, err
		}
		if ok {
			elems = append(elems, tok)
		}
	}
	proc, err := sc.sp.ArrayOf(elems...)
	if err != nil {
		return object.Null(), false, err
	}
	return proc.Cvx(), true, nil
}

func (sc *scanner) str() (object.Object, bool, error) {
	start := sc.pos
	sc.pos++ // (
	var buf []byte
	for depth := 1; ; {
		b, ok := sc.peek(0)
		if !ok {
			sc.pos = start
			return object.Null(), false, sc.syntaxError("unterminated string")
		}
		sc.pos++
		switch b {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				str, err := sc.sp.MakeString(buf)
				return str, err == nil, err
			}
		case '\\':
			esc, ok := sc.peek(0)
			if !ok {
				continue
			}
			sc.pos++
			switch esc {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if nl, _ := sc.peek(0); nl == '\n' {
					sc.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				code := int(esc - '0')
				for i := 0; i < 2; i++ {
					d, ok := sc.peek(0)
					if !ok || d < '0' || d > '7' {
						break
					}
					code = code*8 + int(d-'0')
					sc.pos++
				}
				buf = append(buf, byte(code))
			default:
				buf = append(buf, esc)
			}
			continue
		}
		buf = append(buf, b)
	}
}

func (sc *scanner) hexString() (object.Object, bool, error) {
	start := sc.pos
	sc.pos++ // <
	var buf []byte
	half := -1
	for {
		b, ok := sc.peek(0)
		if !ok {
			sc.pos = start
			return object.Null(), false, sc.syntaxError("unterminated hex string")
		}
		sc.pos++
		if b == '>' {
			break
		}
		if isSpace(b) {
			continue
		}
		d, ok := hexDigit(b)
		if !ok {
			return object.Null(), false, sc.syntaxError("invalid hex digit %q", b)
		}
		if half < 0 {
			half = d
		} else {
			buf = append(buf, byte(half<<4|d))
			half = -1
		}
	}
	if half >= 0 {
		buf = append(buf, byte(half<<4))
	}
	str, err := sc.sp.MakeString(buf)
	return str, err == nil, err
}

func hexDigit(b byte) (int, bool) {
	switch {
	case '0' <= b && b <= '9':
		return int(b - '0'), true
	case 'a' <= b && b <= 'f':
		return int(b-'a') + 10, true
	case 'A' <= b && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}

// number scanning states
const (
	numStart = iota
	numSign
	numInt
	numDot      // seen a '.' with no digits before it
	numFraction // digits after '.'
	numExp
	numExpSign
	numExpDigits
	numRadix
	numRadixDigits
)

// parseNumber recognizes signed integers, reals with an optional fraction
// and exponent, and radix integers like 16#FF. Anything else is not a number
// and so will be a name.
func parseNumber(word string) (object.Object, bool) {
	state := numStart
	isReal := false
	radixAt := -1
	for i := 0; i < len(word); i++ {
		b := word[i]
		digit := '0' <= b && b <= '9'
		switch state {
		case numStart:
			switch {
			case digit:
				state = numInt
			case b == '+' || b == '-':
				state = numSign
			case b == '.':
				state, isReal = numDot, true
			default:
				return object.Null(), false
			}
		case numSign:
			switch {
			case digit:
				state = numInt
			case b == '.':
				state, isReal = numDot, true
			default:
				return object.Null(), false
			}
		case numInt:
			switch {
			case digit:
			case b == '.':
				state, isReal = numFraction, true
			case b == 'e' || b == 'E':
				state, isReal = numExp, true
			case b == '#' && word[0] != '+' && word[0] != '-':
				state, radixAt = numRadix, i
			default:
				return object.Null(), false
			}
		case numDot:
			if !digit {
				return object.Null(), false
			}
			state = numFraction
		case numFraction:
			switch {
			case digit:
			case b == 'e' || b == 'E':
				state = numExp
			default:
				return object.Null(), false
			}
		case numExp:
			switch {
			case digit:
				state = numExpDigits
			case b == '+' || b == '-':
				state = numExpSign
			default:
				return object.Null(), false
			}
		case numExpSign, numExpDigits:
			if !digit {
				return object.Null(), false
			}
			state = numExpDigits
		case numRadix, numRadixDigits:
			if _, ok := hexDigit(b); !ok && !('g' <= b|0x20 && b|0x20 <= 'z') {
				return object.Null(), false
			}
			state = numRadixDigits
		}
	}

	switch state {
	case numInt:
		if i, err := strconv.ParseInt(word, 10, 64); err == nil {
			return object.Int(i), true
		}
		if r, err := strconv.ParseFloat(word, 64); err == nil {
			return object.Real(r), true
		}
	case numFraction, numExpDigits:
		if !isReal {
			break
		}
		if r, err := strconv.ParseFloat(word, 64); err == nil {
			return object.Real(r), true
		}
	case numRadixDigits:
		base, err := strconv.Atoi(word[:radixAt])
		if err != nil || base < 2 || base > 36 {
			break
		}
		if u, err := strconv.ParseUint(word[radixAt+1:], base, 64); err == nil {
			return object.Int(int64(u)), true
		}
	}
	return object.Null(), false
}
