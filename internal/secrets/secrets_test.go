package secrets

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	secret := "bridge-api-key-12345"
	enc, err := c.Encrypt(secret)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if enc == secret || strings.Contains(enc, secret) {
		t.Error("ciphertext leaks the plaintext")
	}

	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != secret {
		t.Errorf("round trip = %q, want %q", dec, secret)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, _ := New(testKey)
	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same input produced identical output")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	c1, _ := New(testKey)
	c2, _ := New("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	enc, _ := c1.Encrypt("secret")
	if _, err := c2.Decrypt(enc); !errors.Is(err, ErrBadCiphertext) {
		t.Errorf("err = %v, want ErrBadCiphertext under wrong key", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, _ := New(testKey)
	for _, input := range []string{"", "not base64 %%", "QUFhYQ=="} {
		if _, err := c.Decrypt(input); !errors.Is(err, ErrBadCiphertext) {
			t.Errorf("Decrypt(%q) err = %v, want ErrBadCiphertext", input, err)
		}
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "abcd", "zz" + testKey[2:]} {
		if _, err := New(key); err == nil {
			t.Errorf("New(%q) accepted an invalid key", key)
		}
	}
}
