package dedup

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "punctuation and whitespace", in: "  Hello,\tWorld!! \n\n visit http://a.b/c now ", want: "hello world visit now"},
		{name: "cyrillic with link and dash", in: "Привет, МИР!  Смотри https://t.me/x?y=1 — новости дня_2024 ", want: "привет мир смотри новости дня_2024"},
		{name: "joined by punctuation", in: "state-of-the-art", want: "stateoftheart"},
		{name: "only symbols", in: "!!! ??? 🔥🔥", want: ""},
		{name: "non-breaking space", in: "a  b", want: "a b"},
		{name: "link only", in: "https://example.com/path?q=1", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	samples := []string{
		"",
		"BREAKING: Rates up 0.5%!",
		"Смотрите https://example.com и http://t.me/c/1/2 сейчас",
		"tabs\tand\nnewlines\r\nmixed   spaces",
		"emoji 🚀 and_underscores __ 42",
		"ΣΊΣΥΦΟΣ ΟΔΌΣ",
	}

	for _, s := range samples {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, twice, once)
		}
	}
}
