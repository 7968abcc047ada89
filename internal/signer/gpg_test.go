package signer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/dcaro/repoman/internal/models"
)

// writeTestKey generates a throwaway signing key and writes it armored to a
// temp file.
func writeTestKey(t *testing.T) string {
	t.Helper()

	entity, err := openpgp.NewEntity("Repo Signing", "", "repo@example.com", nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "signing.asc")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSignFileWritesDetachedSignature(t *testing.T) {
	s, err := NewGPGSigner(writeTestKey(t), "")
	if err != nil {
		t.Fatalf("NewGPGSigner failed: %v", err)
	}

	target := filepath.Join(t.TempDir(), "mytool-1.0.tar.gz")
	if err := os.WriteFile(target, []byte("tarball"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.SignFile(target); err != nil {
		t.Fatalf("SignFile failed: %v", err)
	}

	sig, err := os.ReadFile(target + ".sig")
	if err != nil {
		t.Fatalf("signature not written: %v", err)
	}
	if !bytes.Contains(sig, []byte("BEGIN PGP SIGNATURE")) {
		t.Error("signature is not armored")
	}
}

func TestDetachedSignatureVerifiesAgainstPublicKey(t *testing.T) {
	s, err := NewGPGSigner(writeTestKey(t), "")
	if err != nil {
		t.Fatalf("NewGPGSigner failed: %v", err)
	}

	data := []byte("repomd contents")
	sig, err := s.SignDetached(data)
	if err != nil {
		t.Fatalf("SignDetached failed: %v", err)
	}

	pub, err := s.GetPublicKey()
	if err != nil {
		t.Fatalf("GetPublicKey failed: %v", err)
	}
	if !bytes.Contains(pub, []byte("BEGIN PGP PUBLIC KEY BLOCK")) {
		t.Fatal("exported key is not an armored public key")
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(pub))
	if err != nil {
		t.Fatalf("exported key does not parse: %v", err)
	}
	if _, err := openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(data), bytes.NewReader(sig), nil); err != nil {
		t.Errorf("signature does not verify with the exported key: %v", err)
	}
}

func TestNewGPGSignerMissingKey(t *testing.T) {
	_, err := NewGPGSigner(filepath.Join(t.TempDir(), "absent.asc"), "")
	if !models.IsType(err, models.ErrSigning) {
		t.Errorf("got %v, want Signing error", err)
	}
}
