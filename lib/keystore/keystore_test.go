// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/crossword/lib/secret"
	"github.com/bureau-foundation/crossword/lib/token"
)

// testWorkFactor keeps scrypt fast in tests.
const testWorkFactor = 10

func passphrase(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestSealOpenRoundtrip(t *testing.T) {
	publicToken, privateKey, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}

	var sealed bytes.Buffer
	err = Seal(&sealed, privateKey, passphrase(t, "hunter2"), Options{WorkFactor: testWorkFactor, Label: "alice"})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed.String(), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("key file is not armored: %q", sealed.String()[:40])
	}
	if bytes.Contains(sealed.Bytes(), privateKey.Seed()) {
		t.Error("seed appears in plaintext")
	}

	key, err := Open(&sealed, passphrase(t, "hunter2"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer key.Close()

	if key.Token() != publicToken {
		t.Errorf("token = %s, want %s", key.Token(), publicToken)
	}
	if key.Label() != "alice" {
		t.Errorf("label = %q", key.Label())
	}
	if !bytes.Equal(key.PrivateKey(), privateKey) {
		t.Error("unlocked private key differs")
	}

	message := []byte("solve")
	if !ed25519.Verify(publicToken.PublicKey(), message, ed25519.Sign(key.PrivateKey(), message)) {
		t.Error("signature from unlocked key does not verify")
	}
}

func TestWrongPassphrase(t *testing.T) {
	_, privateKey, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}
	var sealed bytes.Buffer
	if err := Seal(&sealed, privateKey, passphrase(t, "right"), Options{WorkFactor: testWorkFactor}); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = Open(&sealed, passphrase(t, "wrong"))
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Open with wrong passphrase: %v, want ErrWrongPassphrase", err)
	}
}

func TestSealRejectsBadInput(t *testing.T) {
	var sink bytes.Buffer
	if err := Seal(&sink, ed25519.PrivateKey{1, 2, 3}, passphrase(t, "x"), Options{WorkFactor: testWorkFactor}); err == nil {
		t.Error("expected error for short private key")
	}

	_, privateKey, _ := token.Generate()
	if err := Seal(&sink, privateKey, passphrase(t, "x"), Options{WorkFactor: 31}); err == nil {
		t.Error("expected error for out-of-range work factor")
	}
}

func TestOpenGarbage(t *testing.T) {
	if _, err := Open(strings.NewReader("not an age file"), passphrase(t, "x")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestWriteFileNeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alice.key")
	publicToken, privateKey, err := token.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, privateKey, passphrase(t, "pw"), Options{WorkFactor: testWorkFactor}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	_, otherKey, _ := token.Generate()
	if err := WriteFile(path, otherKey, passphrase(t, "pw"), Options{WorkFactor: testWorkFactor}); err == nil {
		t.Fatal("second WriteFile to the same path succeeded")
	}

	key, err := ReadFile(path, passphrase(t, "pw"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer key.Close()
	if key.Token() != publicToken {
		t.Error("existing key file was replaced")
	}
}
