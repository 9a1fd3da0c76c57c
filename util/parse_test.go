package util

import "testing"

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"64MB", 64 * 1024 * 1024},
		{"512KB", 512 * 1024},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{"1024B", 1024},
		{"1024", 1024},
		{" 10mb ", 10 * 1024 * 1024},
		{"", 42},
		{"bogus", 42},
	}
	for _, tc := range cases {
		if got := ParseSize(tc.in, 42); got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
