package core

import "testing"

func TestParseLenient(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1", "1"},
		{"12.50", "12.5"},
		{" 3 ", "3"},
		{"", "0"},
		{"abc", "0"},
		{"1.2.3", "0"},
		{"-4", "-4"},
		{"-0.5", "-0.5"},
		{"1,5", "0"},
	}
	for _, tc := range cases {
		got := ParseLenient(tc.in)
		if got.String() != tc.out {
			t.Fatalf("ParseLenient(%q) = %s, want %s", tc.in, got, tc.out)
		}
	}
}

func TestParseStrict(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"100", "100", true},
		{" 2000000 ", "2000000", true},
		{"0", "0", true},
		{"-1", "-1", true},
		{"6.25", "6.25", true},
		{"", "0", false},
		{"   ", "0", false},
		{"abc", "0", false},
		{"NaN", "0", false},
	}
	for _, tc := range cases {
		got, ok := ParseStrict(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseStrict(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got.String() != tc.out {
			t.Fatalf("ParseStrict(%q) = %s, want %s", tc.in, got, tc.out)
		}
	}
}
