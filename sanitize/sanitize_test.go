package sanitize

import "testing"

func TestNameBasicRules(t *testing.T) {
	cases := []struct{ in, want string }{
		{"book-title", "book_title"},
		{"@id", "attr_id"},
		{"#text", "text"}, // '#' dropped entirely, not replaced
		{"_leading_", "leading"},
		{"normal_name", "normal_name"},
	}
	for _, c := range cases {
		got := Name(c.in, Rules{})
		if got != c.want {
			t.Fatalf("Name(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	rules := Rules{MaxLen: 10, Lower: true}
	for _, in := range []string{"Some@Weird#Name--here", "@attr", "plain"} {
		once := Name(in, rules)
		twice := Name(once, rules)
		if once != twice {
			t.Fatalf("Name not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestNameMaxLenAndLower(t *testing.T) {
	got := Name("VeryLongFieldNameThatExceedsLimits", Rules{MaxLen: 8, Lower: true})
	if len(got) > 8 {
		t.Fatalf("Name() length %d exceeds MaxLen", len(got))
	}
	if got != "verylong" {
		t.Fatalf("Name() = %q, want %q", got, "verylong")
	}
}

func TestDeduperAssignsDistinctNames(t *testing.T) {
	d := NewDeduper(Rules{})
	a := d.Assign("book-title")
	b := d.Assign("book.title") // sanitizes to the same base name
	if a == b {
		t.Fatalf("expected distinct assigned names, both got %q", a)
	}
	if a != "book_title" {
		t.Fatalf("first assignment = %q, want %q", a, "book_title")
	}
	if b != "book_title_1" {
		t.Fatalf("second assignment = %q, want %q", b, "book_title_1")
	}
}

func TestDeduperStableAcrossManyCollisions(t *testing.T) {
	d := NewDeduper(Rules{})
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		name := d.Assign("x!") // always sanitizes to "x"
		if seen[name] {
			t.Fatalf("duplicate assigned name %q", name)
		}
		seen[name] = true
	}
}
