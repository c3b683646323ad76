package services

import "testing"

func TestParseTableSlug(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"menu link", "https://dine.example.com/m/table-t1", "table-t1"},
		{"table link", "https://dine.example.com/table/table-t2?ref=qr", "table-t2"},
		{"menu wins", "https://x/table/a/m/b", "b"},
		{"case insensitive", "HTTPS://X/M/Window-4", "Window-4"},
		{"fragment", "/table/t9#top", "t9"},
		{"bare slug", "  table-t3 \n", "table-t3"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTableSlug(tt.in); got != tt.want {
				t.Errorf("ParseTableSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
