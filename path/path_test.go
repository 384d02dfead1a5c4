package path

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"/", ".", "..",
		"/mob/player", "mob/player", "../foo/bar", "./foo",
	}
	for _, s := range cases {
		p := Parse(s)
		if got := String(p); got != s {
			t.Fatalf("round trip %q: got %q", s, got)
		}
	}
}

func TestCombine(t *testing.T) {
	a := Parse("/mob")
	b := Parse("player")
	got := String(Combine(a, b))
	if got != "/mob/player" {
		t.Fatalf("combine: got %q", got)
	}
}

func TestRemoveLast(t *testing.T) {
	p := Parse("/mob/player")
	got := String(RemoveLast(p))
	if got != "/mob" {
		t.Fatalf("removeLast: got %q", got)
	}
	root := RemoveLast(Root)
	if !Equal(root, Root) {
		t.Fatalf("removeLast on root should be a no-op")
	}
}

func TestIsPrefixOf(t *testing.T) {
	if !IsPrefixOf(Parse("/mob"), Parse("/mob/player")) {
		t.Fatalf("expected /mob to be a prefix of /mob/player")
	}
	if IsPrefixOf(Parse("/mob/player"), Parse("/mob/player")) {
		t.Fatalf("a path is not a strict prefix of itself")
	}
}

func TestUpwardSearch(t *testing.T) {
	universe := map[string]bool{
		"/mob/player/foo": true,
	}
	exists := func(p Path) bool { return universe[String(p)] }
	found, ok := UpwardSearch(Parse("/mob/player/nested"), Parse("foo"), exists)
	if !ok {
		t.Fatalf("expected to find an ancestor defining foo")
	}
	if String(found) != "/mob/player/foo" {
		t.Fatalf("got %q", String(found))
	}
}
