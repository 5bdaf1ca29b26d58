package rsp

import "testing"

func TestParseThreadIDBareLegacy(t *testing.T) {
	tid, err := ParseThreadID("3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tid.PID.Kind != IDSpecific || tid.PID.Value != 1 {
		t.Errorf("bare thread-id should default PID to 1, got %+v", tid.PID)
	}

	if tid.TID.Kind != IDSpecific || tid.TID.Value != 3 {
		t.Errorf("got TID %+v, want specific 3", tid.TID)
	}
}

func TestParseThreadIDWildcards(t *testing.T) {
	any, err := ParseThreadID("0")
	if err != nil || any.TID.Kind != IDAny {
		t.Fatalf("expected Any, got %+v, err=%v", any, err)
	}

	all, err := ParseThreadID("-1")
	if err != nil || all.TID.Kind != IDAll {
		t.Fatalf("expected All, got %+v, err=%v", all, err)
	}
}

func TestParseThreadIDMultiprocess(t *testing.T) {
	tid, err := ParseThreadID("p2.a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tid.PID.Kind != IDSpecific || tid.PID.Value != 2 {
		t.Errorf("got PID %+v, want specific 2", tid.PID)
	}

	if tid.TID.Kind != IDSpecific || tid.TID.Value != 0xa {
		t.Errorf("got TID %+v, want specific 10", tid.TID)
	}
}

func TestParseThreadIDMalformed(t *testing.T) {
	cases := []string{"", "p", "pfoo", "zz"}

	for _, c := range cases {
		if _, err := ParseThreadID(c); err == nil {
			t.Errorf("ParseThreadID(%q) should have failed", c)
		}
	}
}

func TestThreadIDEncodeRoundTrip(t *testing.T) {
	tid := ThreadID{PID: SpecificID(5), TID: SpecificID(7)}

	encoded := tid.Encode(true)
	if encoded != "p5.7" {
		t.Errorf("got %q, want %q", encoded, "p5.7")
	}

	decoded, err := ParseThreadID(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decoded != tid {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, tid)
	}
}

func TestThreadIDEncodeLegacy(t *testing.T) {
	tid := ThreadID{PID: SpecificID(1), TID: SpecificID(9)}

	if got := tid.Encode(false); got != "9" {
		t.Errorf("got %q, want %q", got, "9")
	}
}

func TestThreadIDEncodeWildcards(t *testing.T) {
	all := ThreadID{PID: SpecificID(1), TID: AllID()}
	if got := all.Encode(false); got != "-1" {
		t.Errorf("got %q, want %q", got, "-1")
	}

	any := ThreadID{PID: SpecificID(1), TID: AnyID()}
	if got := any.Encode(false); got != "0" {
		t.Errorf("got %q, want %q", got, "0")
	}
}
