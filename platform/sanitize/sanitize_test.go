package sanitize

import "testing"

func TestPersonName(t *testing.T) {
	cases := map[string]string{
		"jane   doe":          "Jane Doe",
		"JOHN SMITH":          "John Smith",
		"Ronald McDonald":     "Ronald McDonald",
		"<b>ann</b> lee":      "Ann Lee",
		"  Pieter van Dijk  ": "Pieter van Dijk",
	}
	for input, want := range cases {
		if got := PersonName(input); got != want {
			t.Errorf("PersonName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	empty := "<p></p>"
	if TextPtr(&empty) != nil {
		t.Fatal("expected nil when nothing survives sanitizing")
	}
	notes := "<script>x</script>Bring demo store"
	got := TextPtr(&notes)
	if got == nil || *got != "xBring demo store" {
		t.Fatalf("unexpected sanitized notes: %v", got)
	}
}
