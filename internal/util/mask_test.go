package util

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"ab":                "***",
		"alice":             "a…e",
		"Alice@Example.com": "a…@e….com",
		"a@example.com":     "a@e….com",
		" bob@mail.co.uk ":  "b…@m….co.uk",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
