package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatalf("correct password should verify")
	}
}

func TestCheckPasswordRejectsNearMatches(t *testing.T) {
	hash, err := HashPassword("secret-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	for _, guess := range []string{
		"secret-passwor",
		"secret-password ",
		"Secret-password",
		"secret-passwordd",
		"",
	} {
		if CheckPassword(guess, hash) {
			t.Fatalf("near-match %q should not verify", guess)
		}
	}
}

func TestCheckPasswordRejectsGarbageHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("garbage stored hash should never verify")
	}
}
