// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/crossword/lib/codec"
	"github.com/bureau-foundation/crossword/lib/secret"
	"github.com/bureau-foundation/crossword/lib/token"
)

const formatVersion = 1

// DefaultWorkFactor is the scrypt log2(N) used when Options leaves it
// zero.
const DefaultWorkFactor = 18

// maxFileSize bounds what Open will read. Key files are a few hundred
// bytes.
const maxFileSize = 16 << 10

var (
	// ErrWrongPassphrase means the file decrypted with none of the
	// given passphrases.
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase")

	// ErrUnsupportedVersion means the file was written by a newer
	// format.
	ErrUnsupportedVersion = errors.New("keystore: unsupported key file version")
)

type keyFile struct {
	Version int    `cbor:"1,keyasint"`
	Seed    []byte `cbor:"2,keyasint"`
	Label   string `cbor:"3,keyasint,omitempty"`
}

// Options tune Seal.
type Options struct {
	// WorkFactor is the scrypt log2(N). Zero means DefaultWorkFactor.
	WorkFactor int

	// Label is stored in the plaintext, typically the account name.
	Label string
}

// Key is an unlocked signing key.
type Key struct {
	seed  *secret.Buffer
	token token.Token
	label string
}

// Token is the key's public token.
func (k *Key) Token() token.Token { return k.token }

// Label is the label given at Seal time.
func (k *Key) Label() string { return k.label }

// PrivateKey expands the seed into a heap-resident Ed25519 key for
// signing. Callers should clear it when done.
func (k *Key) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed.Bytes())
}

// Close releases the seed.
func (k *Key) Close() error {
	return k.seed.Close()
}

// Seal encrypts privateKey under passphrase and writes the armored file
// to w.
func Seal(w io.Writer, privateKey ed25519.PrivateKey, passphrase *secret.Buffer, opts Options) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("keystore: private key is %d bytes, want %d", len(privateKey), ed25519.PrivateKeySize)
	}
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	workFactor := opts.WorkFactor
	if workFactor == 0 {
		workFactor = DefaultWorkFactor
	}
	if workFactor < 1 || workFactor > 30 {
		return fmt.Errorf("keystore: work factor %d outside [1, 30]", workFactor)
	}
	recipient.SetWorkFactor(workFactor)

	plaintext, err := codec.Marshal(keyFile{
		Version: formatVersion,
		Seed:    privateKey.Seed(),
		Label:   opts.Label,
	})
	if err != nil {
		return fmt.Errorf("keystore: encoding key: %w", err)
	}
	defer secret.Zero(plaintext)

	armored := armor.NewWriter(w)
	sealed, err := age.Encrypt(armored, recipient)
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	if _, err := sealed.Write(plaintext); err != nil {
		return fmt.Errorf("keystore: encrypting: %w", err)
	}
	if err := sealed.Close(); err != nil {
		return fmt.Errorf("keystore: encrypting: %w", err)
	}
	return armored.Close()
}

// Open decrypts a key file. Decryption failure from a wrong passphrase
// is reported as ErrWrongPassphrase.
func Open(r io.Reader, passphrase *secret.Buffer) (*Key, error) {
	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	plaintext, err := age.Decrypt(armor.NewReader(io.LimitReader(r, maxFileSize)), identity)
	if err != nil {
		if errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("keystore: decrypting: %w", err)
	}
	var decrypted bytes.Buffer
	if _, err := decrypted.ReadFrom(plaintext); err != nil {
		return nil, fmt.Errorf("keystore: decrypting: %w", err)
	}
	defer secret.Zero(decrypted.Bytes())

	var file keyFile
	if err := codec.Unmarshal(decrypted.Bytes(), &file); err != nil {
		return nil, fmt.Errorf("keystore: decoding key: %w", err)
	}
	defer secret.Zero(file.Seed)
	if file.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, file.Version)
	}
	if len(file.Seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keystore: seed is %d bytes, want %d", len(file.Seed), ed25519.SeedSize)
	}

	public := ed25519.NewKeyFromSeed(file.Seed).Public().(ed25519.PublicKey)
	publicToken, err := token.FromPublicKey(public)
	if err != nil {
		return nil, err
	}
	seed, err := secret.NewFromBytes(file.Seed)
	if err != nil {
		return nil, err
	}
	return &Key{seed: seed, token: publicToken, label: file.Label}, nil
}

// WriteFile seals privateKey to a new file at path, mode 0600. An
// existing file is never overwritten.
func WriteFile(path string, privateKey ed25519.PrivateKey, passphrase *secret.Buffer, opts Options) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return Seal(file, privateKey, passphrase, opts)
}

// ReadFile opens the key file at path.
func ReadFile(path string, passphrase *secret.Buffer) (*Key, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	defer file.Close()
	return Open(file, passphrase)
}
