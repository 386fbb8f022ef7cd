package imagegen

import "testing"

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1:1", "2048x2048"},
		{"16:9", "2560x1440"},
		{"9:16", "1440x2560"},
		{"21:9", "3024x1296"},
		{"2K", "2K"},
		{"2k", "2K"},
		{"4K", "4K"},
		{"1024x768", "1024x768"},
		{"1024X768", "1024x768"},
		{" 800 x 600 ", "800x600"},
		{"garbage", "2048x2048"},
		{"0x100", "2048x2048"},
		{"", "2048x2048"},
	}
	for _, tc := range cases {
		if got := ParseSize(tc.in); got != tc.want {
			t.Errorf("ParseSize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
