package utils

import (
	"strings"
	"testing"
)

func TestHashString(t *testing.T) {
	h1 := HashString("hello")
	h2 := HashString("hello")
	h3 := HashString("world")

	if h1 != h2 {
		t.Errorf("HashString() not deterministic: %s != %s", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("HashString() collided for different inputs")
	}
	if len(h1) != 64 {
		t.Errorf("HashString() length = %d, want 64", len(h1))
	}
}

func TestHashPasswordArgon2_RoundTrip(t *testing.T) {
	encoded, err := HashPasswordArgon2("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPasswordArgon2() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("HashPasswordArgon2() = %q, want $argon2id$ prefix", encoded)
	}

	ok, err := VerifyPasswordArgon2("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("VerifyPasswordArgon2() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPasswordArgon2() = false for correct password")
	}

	ok, err = VerifyPasswordArgon2("wrong password", encoded)
	if err != nil {
		t.Fatalf("VerifyPasswordArgon2() error = %v", err)
	}
	if ok {
		t.Error("VerifyPasswordArgon2() = true for wrong password")
	}
}

func TestHashPasswordArgon2_UniqueSalts(t *testing.T) {
	a, err := HashPasswordArgon2("same password")
	if err != nil {
		t.Fatalf("HashPasswordArgon2() error = %v", err)
	}
	b, err := HashPasswordArgon2("same password")
	if err != nil {
		t.Fatalf("HashPasswordArgon2() error = %v", err)
	}
	if a == b {
		t.Error("HashPasswordArgon2() produced identical hashes, salts not random")
	}
}

func TestVerifyPasswordArgon2_MalformedHash(t *testing.T) {
	tests := []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	}
	for _, encoded := range tests {
		if ok, err := VerifyPasswordArgon2("password", encoded); err == nil || ok {
			t.Errorf("VerifyPasswordArgon2(%q) = (%v, %v), want error", encoded, ok, err)
		}
	}
}
