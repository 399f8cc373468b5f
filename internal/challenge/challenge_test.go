package challenge

import (
	"bytes"
	"regexp"
	"testing"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]+$`)

func TestGenerate(t *testing.T) {
	pair, err := Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	// 32 bytes hex-encoded
	if len(pair.Secret) != 64 {
		t.Fatalf("expected 64-char secret, got %d", len(pair.Secret))
	}
	// SHA-512 hex digest
	if len(pair.Hash) != 128 {
		t.Fatalf("expected 128-char hash, got %d", len(pair.Hash))
	}
	if !hexRe.MatchString(pair.Secret) || !hexRe.MatchString(pair.Hash) {
		t.Fatal("secret and hash must be lowercase hex")
	}
	if pair.Hash != Hash(pair.Secret) {
		t.Fatal("hash must be the digest of the secret")
	}
}

func TestGenerateFromFixedSource(t *testing.T) {
	src := bytes.NewReader(make([]byte, 32))

	pair, err := Generate(src)
	if err != nil {
		t.Fatal(err)
	}
	wantSecret := "0000000000000000000000000000000000000000000000000000000000000000"
	if pair.Secret != wantSecret {
		t.Fatalf("expected all-zero secret, got %s", pair.Secret)
	}
}

func TestGeneratePairsDiffer(t *testing.T) {
	a, err := Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Secret == b.Secret {
		t.Fatal("two generated secrets should differ")
	}
}

func TestVerify(t *testing.T) {
	pair, err := Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(pair.Secret, pair.Hash) {
		t.Fatal("correct secret should verify")
	}
	if Verify("not the secret", pair.Hash) {
		t.Fatal("wrong secret should not verify")
	}
	if Verify("", pair.Hash) {
		t.Fatal("empty secret should not verify")
	}
	if Verify(pair.Secret, "") {
		t.Fatal("empty stored hash should never verify")
	}
}
