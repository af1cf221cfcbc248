package sanitize

import "testing"

func TestMaskCards(t *testing.T) {
	cases := map[string]string{
		"card 4111 1111 1111 1111 ok": "card 411111XXXXXX1111 ok",
		"card 4111-1111-1111-1111":    "card 411111XXXXXX1111",
		"card 4111111111111111":       "card 411111XXXXXX1111",
		"no digits here":              "no digits here",
	}
	for in, want := range cases {
		if got := MaskCards(in); got != want {
			t.Fatalf("MaskCards(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskCards_Idempotent(t *testing.T) {
	inputs := []string{
		"pay with 4111 1111 1111 1111 please",
		"amex 3782-822463-10005 and visa 4012888888881881",
	}
	for _, in := range inputs {
		once := MaskCards(in)
		twice := MaskCards(once)
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestMaskSSNs_NormalisesSeparators(t *testing.T) {
	for _, in := range []string{"123-45-6789", "123 45 6789", "XXX-XX-6789", "123456789"} {
		if got := MaskSSNs(in); got != "XXX-XX-6789" {
			t.Fatalf("MaskSSNs(%q) = %q", in, got)
		}
	}
}

func TestMaskPatterns_KeepsOtherText(t *testing.T) {
	in := "My SSN is 123 45 6789 and my name is Dana."
	want := "My SSN is XXX-XX-6789 and my name is Dana."
	if got := MaskPatterns(in); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if MaskPatterns(want) != want {
		t.Fatalf("masking masked text must be a no-op")
	}
}
