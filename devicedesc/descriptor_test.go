package devicedesc

import "testing"

func TestStaticLookup(t *testing.T) {
	tbl := NewStatic()
	tbl.Register(0x1234, 0x0001, Desc{Name: "Test Interface", Inputs: 2, Outputs: 4})

	got, ok := tbl.Lookup(0x1234, 0x0001)
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if got.Name != "Test Interface" || got.Inputs != 2 || got.Outputs != 4 {
		t.Fatalf("unexpected descriptor: %+v", got)
	}

	if _, ok := tbl.Lookup(0x9999, 0x9999); ok {
		t.Fatalf("expected lookup of unknown device to fail")
	}
}

func TestStaticRegisterOverwrites(t *testing.T) {
	tbl := NewStatic()
	tbl.Register(0x1234, 0x0001, Desc{Name: "First", Inputs: 1, Outputs: 1})
	tbl.Register(0x1234, 0x0001, Desc{Name: "Second", Inputs: 2, Outputs: 2})

	got, _ := tbl.Lookup(0x1234, 0x0001)
	if got.Name != "Second" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}
