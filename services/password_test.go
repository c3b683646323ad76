package services

import (
	"strings"
	"testing"
)

func TestGenerateSecurePassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := GenerateSecurePassword()
		if err != nil {
			t.Fatalf("GenerateSecurePassword: %v", err)
		}
		if len(pw) != passwordLen {
			t.Errorf("len = %d, want %d", len(pw), passwordLen)
		}
		for _, set := range []string{upperLetters, lowerLetters, digits, symbols} {
			if !strings.ContainsAny(pw, set) {
				t.Errorf("%q has no character from %q", pw, set)
			}
		}
	}
}

func TestAdminPassword(t *testing.T) {
	hash, err := HashAdminPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashAdminPassword: %v", err)
	}
	if !CheckAdminPassword(hash, "s3cret!") {
		t.Error("correct password rejected")
	}
	if CheckAdminPassword(hash, "s3cret") {
		t.Error("wrong password accepted")
	}
	if CheckAdminPassword("", "s3cret!") {
		t.Error("empty hash must never match")
	}
	if _, err := HashAdminPassword(""); err == nil {
		t.Error("empty password should fail")
	}
}
