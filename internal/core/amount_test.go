package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"1100", "1100", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountLenient(t *testing.T) {
	if d, ok := ParseAmountLenient("garbage"); ok || !d.IsZero() {
		t.Fatalf("malformed amount should degrade to zero, got %s (ok=%v)", d, ok)
	}
	if d, ok := ParseAmountLenient("99.99"); !ok || d.String() != "99.99" {
		t.Fatalf("clean amount should parse, got %s (ok=%v)", d, ok)
	}
}
