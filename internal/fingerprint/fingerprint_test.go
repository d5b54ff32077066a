package fingerprint

import "testing"

func TestVisitor_Deterministic(t *testing.T) {
	g := New("test-secret")

	a := g.Visitor("203.0.113.7", "Mozilla/5.0")
	b := g.Visitor("203.0.113.7", "Mozilla/5.0")
	if a != b {
		t.Fatalf("same input produced different ids: %s vs %s", a, b)
	}
}

func TestVisitor_FixedLength(t *testing.T) {
	g := New("")

	for _, pair := range [][2]string{
		{"", ""},
		{"10.0.0.1", ""},
		{"", "curl/8.0"},
		{"2001:db8::1", "some very long user agent string repeated many times"},
	} {
		id := g.Visitor(pair[0], pair[1])
		if len(id) != 64 {
			t.Fatalf("expected 64 hex chars for %q/%q, got %d", pair[0], pair[1], len(id))
		}
	}
}

func TestVisitor_DistinctInputs(t *testing.T) {
	g := New("test-secret")

	if g.Visitor("10.0.0.1", "agent") == g.Visitor("10.0.0.2", "agent") {
		t.Fatal("different IPs collided")
	}
	if g.Visitor("10.0.0.1", "agent-a") == g.Visitor("10.0.0.1", "agent-b") {
		t.Fatal("different agents collided")
	}
	// Boundary between ip and agent must matter.
	if g.Visitor("ab", "c") == g.Visitor("a", "bc") {
		t.Fatal("ip/agent boundary ignored")
	}
}

func TestVisitor_KeyChangesOutput(t *testing.T) {
	if New("k1").Visitor("ip", "ua") == New("k2").Visitor("ip", "ua") {
		t.Fatal("different keys produced identical ids")
	}
}
