package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"speclower/internal/types"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// NoMetadata omits instruction metadata attachments.
	NoMetadata bool
}

// Dump writes an LLVM-like textual form of the module.
func Dump(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{w: w, types: m.Types, opts: opts}
	p.printf("; module %s\n", m.Name)
	for _, g := range m.Globals {
		kind := "global"
		if g.IsConst {
			kind = "constant"
		}
		init := ""
		if g.Init != nil {
			init = " " + p.constBody(g.Init)
		}
		p.printf("@%s = %s %s%s\n", g.Name, kind, p.types.String(g.ElemType), init)
	}
	for _, f := range m.Funcs {
		p.printf("\n")
		p.dumpFunc(f)
	}
	return p.err
}

// String renders the module with Dump into a string.
func (m *Module) String() string {
	var sb strings.Builder
	_ = Dump(&sb, m, DumpOptions{})
	return sb.String()
}

type printer struct {
	w     io.Writer
	types *types.Interner
	opts  DumpOptions
	slots map[Value]string
	err   error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) dumpFunc(f *Func) {
	p.numberValues(f)
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		if f.IsDeclaration() {
			params[i] = p.types.String(prm.Typ)
		} else {
			params[i] = p.types.String(prm.Typ) + " " + p.ref(prm)
		}
	}
	if f.IsDeclaration() {
		p.printf("declare %s @%s(%s)\n", p.types.String(f.Result), f.Name, strings.Join(params, ", "))
		return
	}
	p.printf("define %s @%s(%s) {\n", p.types.String(f.Result), f.Name, strings.Join(params, ", "))
	for i, b := range f.Blocks {
		if i > 0 {
			p.printf("\n")
		}
		p.printf("%s:\n", b.Name)
		for _, ins := range b.Instrs {
			p.printf("  %s\n", p.formatInstr(ins))
		}
	}
	p.printf("}\n")
}

// numberValues assigns printable names to the parameters and results of f.
// Unnamed values get sequential numbers, as in LLVM.
func (p *printer) numberValues(f *Func) {
	p.slots = make(map[Value]string, 16)
	next := 0
	assign := func(v Value, name string) {
		if name != "" {
			p.slots[v] = "%" + name
			return
		}
		p.slots[v] = "%" + strconv.Itoa(next)
		next++
	}
	for _, prm := range f.Params {
		assign(prm, prm.Name)
	}
	for _, b := range f.Blocks {
		for _, ins := range b.Instrs {
			if ins.HasResult() {
				assign(ins, ins.Name)
			}
		}
	}
}

func (p *printer) formatInstr(ins *Instr) string {
	var body string
	switch ins.Kind {
	case InstrAlloca:
		body = "alloca " + p.types.String(ins.Alloca.Elem)
	case InstrLoad:
		body = fmt.Sprintf("load %s, %s", p.types.String(ins.Typ), p.typedRef(ins.Load.Ptr))
	case InstrStore:
		body = fmt.Sprintf("store %s, %s", p.typedRef(ins.Store.Value), p.typedRef(ins.Store.Ptr))
	case InstrCall:
		args := make([]string, len(ins.Call.Args))
		for i, a := range ins.Call.Args {
			args[i] = p.typedRef(a)
		}
		name := "<nil>"
		result := "void"
		if ins.Call.Callee != nil {
			name = ins.Call.Callee.Name
			result = p.types.String(ins.Call.Callee.Result)
		}
		body = fmt.Sprintf("call %s @%s(%s)", result, name, strings.Join(args, ", "))
	case InstrCast:
		body = fmt.Sprintf("%s %s to %s", ins.Cast.Op, p.typedRef(ins.Cast.Value), p.types.String(ins.Typ))
	case InstrBinary:
		body = fmt.Sprintf("%s %s, %s", ins.Binary.Op, p.typedRef(ins.Binary.Left), p.ref(ins.Binary.Right))
	case InstrRet:
		if ins.Ret.HasValue {
			body = "ret " + p.typedRef(ins.Ret.Value)
		} else {
			body = "ret void"
		}
	case InstrBr:
		target := "<nil>"
		if ins.Br.Target != nil {
			target = ins.Br.Target.Name
		}
		body = "br label %" + target
	default:
		body = ins.Kind.String()
	}
	if ins.HasResult() {
		body = p.ref(ins) + " = " + body
	}
	if !p.opts.NoMetadata {
		for _, name := range ins.MetadataNames() {
			body += ", !" + name + " " + formatMDNode(ins.Metadata[name])
		}
	}
	return body
}

func (p *printer) typedRef(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return p.types.String(v.Type()) + " " + p.ref(v)
}

func (p *printer) ref(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case *Global:
		return "@" + x.Name
	case *Const:
		return p.constBody(x)
	case *ConstExpr:
		if x.Op == ExprGEP {
			idx := make([]string, len(x.Indices))
			for i, n := range x.Indices {
				idx[i] = "i64 " + strconv.FormatInt(n, 10)
			}
			return fmt.Sprintf("getelementptr (%s, %s)", p.typedRef(x.Operand), strings.Join(idx, ", "))
		}
		return fmt.Sprintf("%s (%s to %s)", x.Op, p.typedRef(x.Operand), p.types.String(x.Typ))
	default:
		if s, ok := p.slots[v]; ok {
			return s
		}
		return "%<detached>"
	}
}

func (p *printer) constBody(c *Const) string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatUint(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstBytes:
		return "c\"" + escapeBytes(c.Bytes) + "\""
	case ConstAggregate:
		if c.IsZero() {
			return "zeroinitializer"
		}
		open, closing := "{ ", " }"
		if tt, ok := p.types.Lookup(c.Typ); ok {
			switch tt.Kind {
			case types.KindArray:
				open, closing = "[", "]"
			case types.KindVector:
				open, closing = "<", ">"
			}
		}
		parts := make([]string, len(c.Elems))
		for i, e := range c.Elems {
			parts[i] = p.types.String(e.Typ) + " " + p.constBody(e)
		}
		return open + strings.Join(parts, ", ") + closing
	default:
		return "<const?>"
	}
}

func escapeBytes(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if b >= 0x20 && b < 0x7f && b != '"' && b != '\\' {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "\\%02X", b)
	}
	return sb.String()
}

func formatMDNode(n *MDNode) string {
	if n == nil {
		return "!{}"
	}
	parts := make([]string, len(n.Operands))
	for i, op := range n.Operands {
		switch op.Kind {
		case MDString:
			parts[i] = "!\"" + escapeBytes([]byte(op.Str)) + "\""
		case MDInt:
			parts[i] = fmt.Sprintf("i%d %d", op.Width, op.Int)
		default:
			parts[i] = "?"
		}
	}
	return "!{" + strings.Join(parts, ", ") + "}"
}
