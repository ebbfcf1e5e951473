package model

import (
	"strings"
	"testing"
)

func TestGenerateInviteCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateInviteCode()
		if len(code) != InviteCodeLen {
			t.Fatalf("code %q has length %d, want %d", code, len(code), InviteCodeLen)
		}
		for _, ch := range code {
			if !strings.ContainsRune(InviteCodeAlphabet, ch) {
				t.Fatalf("code %q contains %q, not in alphabet", code, ch)
			}
		}
	}
}

func TestGenerateInviteCode_ExcludesConfusables(t *testing.T) {
	for _, ch := range "0O1I" {
		if strings.ContainsRune(InviteCodeAlphabet, ch) {
			t.Errorf("alphabet contains confusable %q", ch)
		}
	}
	if len(InviteCodeAlphabet) != 32 {
		t.Errorf("alphabet has %d symbols, want 32", len(InviteCodeAlphabet))
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"uppercase passthrough", "XJ7K2M", "XJ7K2M", false},
		{"lowercase normalized", "xj7k2m", "XJ7K2M", false},
		{"surrounding whitespace", "  xj7k2m ", "XJ7K2M", false},
		{"too short", "XJ7K2", "", true},
		{"too long", "XJ7K2MM", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeInviteCode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeInviteCode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeInviteCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
