package utils

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"One Piece":            "One Piece",
		"Fate/Zero":            "Fate_Zero",
		`What? "Really"`:       "What_ _Really_",
		"  ..trailing dots.. ": "trailing dots",
		"a<b>c|d*e:f\\g":       "a_b_c_d_e_f_g",
		"":                     "",
	}

	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsPlainFilename(t *testing.T) {
	tests := map[string]bool{
		"1-abc123.png":      true,
		"x..y.jpg":          true,
		"":                  false,
		".":                 false,
		"..":                false,
		"../../escaped.png": false,
		"sub/1.png":         false,
		`..\escaped.png`:    false,
		"/etc/passwd":       false,
	}

	for in, want := range tests {
		if got := IsPlainFilename(in); got != want {
			t.Errorf("IsPlainFilename(%q) = %v, want %v", in, got, want)
		}
	}
}
