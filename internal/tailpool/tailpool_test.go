package tailpool

import "testing"

func TestPushAndRead(t *testing.T) {
	var p Pool
	off := p.Len()
	for _, b := range []byte("suffix") {
		p.PushLabel(b)
	}
	p.PushLabel(0)
	p.PushValue(42)

	if got := p.StrLen(off); got != 6 {
		t.Fatalf("StrLen = %d, want 6", got)
	}
	if got := p.ValueAt(off + 6 + 1); got != 42 {
		t.Fatalf("ValueAt = %d, want 42", got)
	}
}

func TestMatch(t *testing.T) {
	var p Pool
	off := p.Len()
	for _, b := range []byte("car") {
		p.PushLabel(b)
	}
	p.PushLabel(0)
	p.PushValue(1)

	if _, ok := p.Match([]byte("car"), off); !ok {
		t.Fatal("expected match for exact suffix")
	}
	if _, ok := p.Match([]byte("cart"), off); ok {
		t.Fatal("expected no match for longer key")
	}
	if _, ok := p.Match([]byte("ca"), off); ok {
		t.Fatal("expected no match for shorter key")
	}
}

func TestResetReturnsOldBuffer(t *testing.T) {
	var p Pool
	p.PushLabel('a')
	p.PushLabel(0)
	p.PushValue(1)
	p.MarkDead(6)

	old := p.Reset(0)
	if len(old) != 6 {
		t.Fatalf("old len = %d, want 6", len(old))
	}
	if p.Len() != 0 || p.Dead() != 0 {
		t.Fatalf("Reset did not clear pool: len=%d dead=%d", p.Len(), p.Dead())
	}
}
