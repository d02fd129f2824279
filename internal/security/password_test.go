package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if hash == "secret1" || hash == "" {
		t.Fatalf("hash should not equal or be empty: %q", hash)
	}

	if err := CheckPassword(hash, "secret1"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}

	if err := CheckPassword(hash, "wrong-password"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestHashUsesConfiguredCost(t *testing.T) {
	hash, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))

	if err != nil {
		t.Fatalf("cost extraction failed: %v", err)
	}

	if cost != passwordCost {
		t.Fatalf("expected cost %d, got %d", passwordCost, cost)
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	b, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}
