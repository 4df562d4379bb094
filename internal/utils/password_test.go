package utils

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash equals plaintext")
	}
	if !VerifyPassword(hash, "s3cret-pass") {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-pass") {
		t.Fatalf("wrong password accepted")
	}
}
