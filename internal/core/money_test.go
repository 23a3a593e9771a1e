package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.25", 1.25, true},
		{"1,25", 1.25, true},
		{" 250 ", 250, true},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e5", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	cases := map[float64]string{
		0:        "Rs. 0.00",
		12.5:     "Rs. 12.50",
		1234.567: "Rs. 1,234.57",
		-850:     "-Rs. 850.00",
		1000000:  "Rs. 1,000,000.00",
		-0.001:   "Rs. 0.00",
	}
	for in, want := range cases {
		if got := FormatRupees(in); got != want {
			t.Errorf("FormatRupees(%v) = %q, want %q", in, got, want)
		}
	}
}
