package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

func TestParseNumber(t *testing.T) {
	for _, tc := range []struct {
		word string
		want object.Object
	}{
		{"42", object.Int(42)},
		{"-7", object.Int(-7)},
		{"+3", object.Int(3)},
		{"3.5", object.Real(3.5)},
		{"-.5", object.Real(-0.5)},
		{"1.", object.Real(1)},
		{"1e3", object.Real(1000)},
		{"2.5E-1", object.Real(0.25)},
		{"16#FF", object.Int(255)},
		{"2#101", object.Int(5)},
		{"36#z", object.Int(35)},
		{"9223372036854775808", object.Real(9223372036854775808)},
	} {
		t.Run(tc.word, func(t *testing.T) {
			got, ok := parseNumber(tc.word)
			require.True(t, ok, "expected a number")
			assert.Equal(t, tc.want, got)
		})
	}

	for _, word := range []string{
		"abc", "1a", "-", "+", ".", "1e", "1e+", "+16#FF", "16#", "1#0", "37#1", "2#102", "1..2",
	} {
		t.Run(fmt.Sprintf("not %q", word), func(t *testing.T) {
			_, ok := parseNumber(word)
			assert.False(t, ok, "expected a name")
		})
	}
}

func TestScanToken(t *testing.T) {
	c := newTestContext(t)

	tok, n, ok, err := c.scanToken([]byte("  % hi\n /foo rest"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12, n)
	assert.Equal(t, object.NameType, tok.Type())
	assert.False(t, tok.Executable())
	assert.Equal(t, "foo", c.text(tok))

	_, n, ok, err = c.scanToken([]byte(" \t% only a comment"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 18, n)

	tok, _, ok, err = c.scanToken([]byte("{1 {2} x}"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "{1 {2} x}", c.syntax(tok))
	assert.Equal(t, object.Local, tok.Bank())

	c.vmGlobal = true
	tok, _, _, err = c.scanToken([]byte("(g)"))
	require.NoError(t, err)
	assert.Equal(t, object.Global, tok.Bank(), "expected allocation in the current VM")
}

func TestScanner(t *testing.T) {
	rtTestCases{
		rtTest("strings").
			do(`(a\nb) (\101\102) (x (y) z) (tab\there) (one\
two)`).
			expectStack(`(a\nb)`, `(AB)`, `(x \(y\) z)`, `(tab\there)`, `(onetwo)`),
		rtTest("hex strings").
			do(`<414 2> <4> <>`).
			expectStack(`(AB)`, `(@)`, `()`),
		rtTest("comments").
			do("1 % two\n3%four\n5").
			expectStack("1", "3", "5"),
		rtTest("delimiters").
			do(`/a/b(c){d}[1 2]`).
			expectStack("/a", "/b", "(c)", "{d}", "[1 2]"),
		rtTest("dict syntax").
			do(`<< /a 1 /b (x) >> /b get`).
			expectStack("(x)"),
		rtTest("names and numbers").
			do(`16#10 1.5 1e2 -0 /abc.def pop`).
			expectStack("16", "1.5", "100.0", "0"),
		rtTest("unbalanced paren").
			do(`1 )`).
			expectError(fault.SyntaxError),
		rtTest("unterminated procedure").
			do(`{1 2`).
			expectError(fault.SyntaxError),
		rtTest("unterminated string").
			do(`(abc`).
			expectError(fault.SyntaxError),
		rtTest("bad hex").
			do(`<4g>`).
			expectError(fault.SyntaxError),
		rtTest("immediate undefined").
			do(`//nosuchname`).
			expectError(fault.Undefined),
	}.run(t)
}
