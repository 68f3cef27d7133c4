package layout

// Target is the device a module is compiled for. Only pointer width differs
// between the SPIR variants.
type Target struct {
	Triple   string
	PtrSize  int
	PtrAlign int
}

func SPIR64() Target { return Target{Triple: "spir64-unknown-unknown", PtrSize: 8, PtrAlign: 8} }

func SPIR32() Target { return Target{Triple: "spir-unknown-unknown", PtrSize: 4, PtrAlign: 4} }

func (t Target) pointer() TypeLayout {
	size := t.PtrSize
	if size <= 0 {
		size = 8
	}
	align := t.PtrAlign
	if align <= 0 {
		align = size
	}
	return TypeLayout{Size: size, Align: align}
}
