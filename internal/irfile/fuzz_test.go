package irfile

import (
	"bytes"
	"testing"

	"speclower/internal/ir"
)

const maxFuzzBytes = 64 << 10

// FuzzDecode feeds arbitrary bytes to Decode. It must never panic, and every
// module it accepts and validates must encode back to the same text.
func FuzzDecode(f *testing.F) {
	var seed bytes.Buffer
	if err := Encode(&seed, sampleModule(f)); err != nil {
		f.Fatalf("Encode: %v", err)
	}
	f.Add(seed.Bytes())
	f.Add(seed.Bytes()[:seed.Len()/2])
	f.Add([]byte{})
	f.Add([]byte{0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > maxFuzzBytes {
			t.Skip()
		}
		m, err := Decode(bytes.NewReader(data))
		if err != nil {
			return
		}
		if ir.Validate(m) != nil {
			return
		}
		var buf bytes.Buffer
		if err := Encode(&buf, m); err != nil {
			t.Fatalf("re-encode of a valid module failed: %v", err)
		}
		again, err := Decode(&buf)
		if err != nil {
			t.Fatalf("decode of re-encoded module failed: %v", err)
		}
		if again.String() != m.String() {
			t.Fatalf("round trip changed the module\nfirst:\n%s\nsecond:\n%s", m, again)
		}
	})
}
