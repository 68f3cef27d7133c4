package specconst

import (
	"strconv"
	"strings"

	"speclower/internal/types"
)

// Mangle builds the Itanium-style name of base overloaded on params:
// "_Z" <len(base)> <base> <param codes>.
//
// Scalars encode as b (i1), a (i8), s (i16), i (i32), x (i64), f (float) and
// d (double). Arrays encode as A<n>_<elem>, vectors as Dv<n>_<elem>, named
// structs as <len><name> and literal structs as S<fields>E. Other integer
// widths, pointers and void are rejected with ErrUnsupportedType.
func Mangle(in *types.Interner, base string, params []types.TypeID) (string, error) {
	var sb strings.Builder
	sb.WriteString("_Z")
	sb.WriteString(strconv.Itoa(len(base)))
	sb.WriteString(base)
	w := newWalker(in)
	for _, p := range params {
		if err := w.mangle(&sb, p); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// MangleComposite is Mangle with the result type appended as _R<code>, so
// composites with equal member types but different result types get
// distinct intrinsics.
func MangleComposite(in *types.Interner, base string, result types.TypeID, params []types.TypeID) (string, error) {
	name, err := Mangle(in, base, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("_R")
	if err := newWalker(in).mangle(&sb, result); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (w *walker) mangle(sb *strings.Builder, id types.TypeID) error {
	tt, err := w.lookup(id)
	if err != nil {
		return err
	}
	switch tt.Kind {
	case types.KindInt:
		code, ok := intCodes[tt.Width]
		if !ok {
			return unsupported(w.in, id)
		}
		sb.WriteByte(code)
	case types.KindFloat:
		switch tt.Width {
		case types.Width32:
			sb.WriteByte('f')
		case types.Width64:
			sb.WriteByte('d')
		default:
			return unsupported(w.in, id)
		}
	case types.KindArray:
		sb.WriteByte('A')
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		sb.WriteByte('_')
		return w.mangle(sb, tt.Elem)
	case types.KindVector:
		sb.WriteString("Dv")
		sb.WriteString(strconv.FormatUint(uint64(tt.Count), 10))
		sb.WriteByte('_')
		return w.mangle(sb, tt.Elem)
	case types.KindStruct:
		info, ok := w.in.StructInfo(id)
		if !ok {
			return unsupported(w.in, id)
		}
		if info.Name != "" {
			sb.WriteString(strconv.Itoa(len(info.Name)))
			sb.WriteString(info.Name)
			return nil
		}
		sb.WriteByte('S')
		for _, f := range info.Fields {
			if err := w.mangle(sb, f); err != nil {
				return err
			}
		}
		sb.WriteByte('E')
	default:
		return unsupported(w.in, id)
	}
	return nil
}

var intCodes = map[types.Width]byte{
	types.Width1:  'b',
	types.Width8:  'a',
	types.Width16: 's',
	types.Width32: 'i',
	types.Width64: 'x',
}
