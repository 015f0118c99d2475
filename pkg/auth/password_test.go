package auth

import "testing"

func TestHashPasswordWithSaltDeterministic(t *testing.T) {
	h1 := HashPasswordWithSalt("hunter2", "abc123")
	h2 := HashPasswordWithSalt("hunter2", "abc123")
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}

	if HashPasswordWithSalt("hunter2", "different") == h1 {
		t.Error("different salts produced the same hash")
	}
}

func TestGenerateHashAndSalt(t *testing.T) {
	hash, salt := GenerateHashAndSalt("hunter2")
	if hash == "" || salt == "" {
		t.Fatal("empty hash or salt")
	}
	if hash != HashPasswordWithSalt("hunter2", salt) {
		t.Error("generated hash does not verify against its own salt")
	}

	_, salt2 := GenerateHashAndSalt("hunter2")
	if salt == salt2 {
		t.Error("two calls produced the same salt")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, salt := GenerateHashAndSalt("correct horse")

	if !VerifyPassword("correct horse", salt, hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("correct horse", "wrong salt", hash) {
		t.Error("wrong salt accepted")
	}
}

func TestRandomHexLength(t *testing.T) {
	s, err := RandomHex(16)
	if err != nil {
		t.Fatalf("RandomHex failed: %v", err)
	}
	if len(s) != 32 {
		t.Errorf("got %d chars, want 32", len(s))
	}
}
