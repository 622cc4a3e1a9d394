package main

import (
	"strconv"
	"strings"

	"github.com/jcorbin/gopost/internal/object"
)

func outputOps() []builtin {
	return []builtin{
		def("print", sig(func(c *Context, args []object.Object) (Status, error) {
			b, err := c.readString(args[0])
			if err != nil {
				return proceed(err)
			}
			return proceed(c.write(string(b)))
		}, stringArg)),
		def("=", sig(func(c *Context, args []object.Object) (Status, error) {
			text, err := c.cvsText(args[0])
			if err != nil {
				return proceed(err)
			}
			return proceed(c.write(string(text) + "\n"))
		}, anyArg)),
		def("==", sig(func(c *Context, args []object.Object) (Status, error) {
			return proceed(c.write(c.syntax(args[0]) + "\n"))
		}, anyArg)),
		def("pstack", sig(func(c *Context, _ []object.Object) (Status, error) {
			var sb strings.Builder
			for i := 0; i < c.os.Count(); i++ {
				o, err := c.os.TopDown(i)
				if err != nil {
					return proceed(err)
				}
				sb.WriteString(c.syntax(o))
				sb.WriteByte('\n')
			}
			return proceed(c.write(sb.String()))
		})),
	}
}

func (c *Context) write(s string) error {
	_, err := c.rt.out.Write([]byte(s))
	return err
}

// maxSyntaxDepth bounds how deeply == descends into nested arrays, which may
// be cyclic.
const maxSyntaxDepth = 8

// syntax renders o the way == prints it, as source text where possible.
func (c *Context) syntax(o object.Object) string {
	var sb strings.Builder
	c.writeSyntax(&sb, o, 0)
	return sb.String()
}

func (c *Context) writeSyntax(sb *strings.Builder, o object.Object, depth int) {
	switch o.Type() {
	case object.StringType:
		b, err := c.readString(o)
		if err != nil {
			sb.WriteString("--nostringval--")
			return
		}
		sb.WriteByte('(')
		for _, ch := range b {
			switch ch {
			case '(', ')', '\\':
				sb.WriteByte('\\')
				sb.WriteByte(ch)
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				if ch < 0x20 || ch >= 0x7f {
					sb.WriteByte('\\')
					sb.WriteString(strconv.FormatInt(int64(ch)|0o1000, 8)[1:])
				} else {
					sb.WriteByte(ch)
				}
			}
		}
		sb.WriteByte(')')
	case object.NameType:
		if !o.Executable() {
			sb.WriteByte('/')
		}
		sb.WriteString(c.text(o))
	case object.OperatorType:
		sb.WriteString("--")
		if op, err := c.rt.operator(o.OpCode()); err == nil {
			sb.WriteString(op.name)
		}
		sb.WriteString("--")
	case object.ArrayType:
		open, close := "[", "]"
		if o.Executable() {
			open, close = "{", "}"
		}
		if depth >= maxSyntaxDepth || !o.Readable() {
			sb.WriteString(open + "..." + close)
			return
		}
		vals, err := c.SelectMemory(o).ArrayContents(o)
		if err != nil {
			sb.WriteString("--nostringval--")
			return
		}
		sb.WriteString(open)
		for i, v := range vals {
			if i > 0 {
				sb.WriteByte(' ')
			}
			c.writeSyntax(sb, v, depth+1)
		}
		sb.WriteString(close)
	case object.DictType:
		sb.WriteString("-dict-")
	case object.IntegerType, object.RealType, object.BooleanType, object.NullType,
		object.MarkType, object.SaveType, object.ContextType:
		sb.WriteString(o.Cvlit().String())
	default:
		sb.WriteString("-" + o.Type().String() + "-")
	}
}
