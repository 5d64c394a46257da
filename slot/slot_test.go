package slot

import "testing"

func TestCellBaseAndCheck(t *testing.T) {
	var c Cell
	c.SetBase(123)
	c.SetCheck(456)
	c.Fix()

	if c.Base() != 123 {
		t.Fatalf("Base() = %d, want 123", c.Base())
	}
	if c.Check() != 456 {
		t.Fatalf("Check() = %d, want 456", c.Check())
	}
	if c.IsLeaf() {
		t.Fatal("expected IsLeaf false after SetBase")
	}
	if !c.IsFixed() {
		t.Fatal("expected IsFixed true after Fix")
	}
}

func TestCellValueSetsLeafFlag(t *testing.T) {
	var c Cell
	c.SetValue(999)
	if !c.IsLeaf() {
		t.Fatal("expected IsLeaf true after SetValue")
	}
	if c.Value() != 999 {
		t.Fatalf("Value() = %d, want 999", c.Value())
	}
}

func TestCellRawRoundTrip(t *testing.T) {
	var c Cell
	c.SetBase(77)
	c.SetCheck(88)
	c.Fix()
	base, check := c.Raw()
	got := FromRaw(base, check)
	if got.Base() != 77 || got.Check() != 88 || !got.IsFixed() {
		t.Fatalf("FromRaw round trip mismatch: %+v", got)
	}
}

func TestCellUnfixPreservesCheckLink(t *testing.T) {
	var c Cell
	c.SetCheck(5)
	c.Fix()
	c.Unfix()
	if c.IsFixed() {
		t.Fatal("expected IsFixed false after Unfix")
	}
	if c.Check() != 5 {
		t.Fatalf("Check() = %d, want 5 preserved across Unfix", c.Check())
	}
}
