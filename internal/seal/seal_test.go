package seal

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey([]byte("correct horse battery staple"), salt)

	plaintexts := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello, world"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, pt := range plaintexts {
		ciphertext, nonce, err := Seal(pt, key)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		got, err := Open(ciphertext, nonce, key)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch: got %q, want %q", got, pt)
		}
	}
}

func TestOpenWrongKeyFails(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey([]byte("password-a"), salt)
	otherKey := DeriveKey([]byte("password-b"), salt)

	ciphertext, nonce, err := Seal([]byte("secret payload"), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(ciphertext, nonce, otherKey); err == nil {
		t.Fatal("Open succeeded with the wrong key")
	}
}

func TestOpenTamperedCiphertextFails(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey([]byte("password"), salt)

	ciphertext, nonce, err := Seal([]byte("secret payload"), key)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[0] ^= 0xFF
	if _, err := Open(ciphertext, nonce, key); err == nil {
		t.Fatal("Open succeeded with a flipped ciphertext bit")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, _ := GenerateSalt()
	k1 := DeriveKey([]byte("hunter2"), salt)
	k2 := DeriveKey([]byte("hunter2"), salt)
	if *k1 != *k2 {
		t.Fatal("DeriveKey is not deterministic for the same password and salt")
	}
}
