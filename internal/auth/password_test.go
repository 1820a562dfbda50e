package auth

import (
	"errors"
	"strings"
	"testing"
)

// cheap keeps the tests fast.
var cheap = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("expected the password to verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	other, _ := HashPassword("s3cret", cheap)
	if other == hash {
		t.Fatalf("expected a fresh salt per hash")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want error
	}{
		{name: "plain text", hash: "secret", want: ErrInvalidPasswordHash},
		{name: "wrong algorithm", hash: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA", want: ErrInvalidPasswordHash},
		{name: "old version", hash: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA", want: ErrIncompatiblePasswordVersion},
		{name: "bad params", hash: "$argon2id$v=19$memory$c2FsdA$aGFzaA", want: ErrInvalidPasswordHash},
		{name: "bad salt", hash: "$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA", want: ErrInvalidPasswordHash},
		{name: "empty hash", hash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$", want: ErrInvalidPasswordHash},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := VerifyPassword(tt.hash, "secret"); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("", cheap); err == nil {
		t.Fatalf("expected an error for an empty password")
	}
}

func TestBasicCheck(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := NewBasic("admin", hash)
	if err != nil {
		t.Fatalf("new basic: %v", err)
	}

	if !b.Check("admin", "s3cret") {
		t.Fatalf("expected valid credentials to pass")
	}
	// Second call is served from the cache and must agree.
	if !b.Check("admin", "s3cret") {
		t.Fatalf("expected cached credentials to pass")
	}
	if b.Check("root", "s3cret") {
		t.Fatalf("wrong username must fail even with a cached password")
	}
	if b.Check("admin", "wrong") {
		t.Fatalf("wrong password must fail")
	}

	if _, err := NewBasic("admin", "plain"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected NewBasic to reject a malformed hash, got %v", err)
	}
}
