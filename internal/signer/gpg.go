package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/dcaro/repoman/internal/fileutil"
	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
)

// GPGSigner implements Signer using a GPG private key file
type GPGSigner struct {
	entity *openpgp.Entity
}

// NewGPGSigner creates a new GPG signer from a private key file
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, &models.RepoError{
			Type: models.ErrSigning,
			Err:  fmt.Errorf("key path is empty"),
		}
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, &models.RepoError{
			Type: models.ErrSigning,
			Err:  fmt.Errorf("failed to open key file: %w", err),
		}
	}
	defer keyFile.Close()

	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary key
		keyFile.Seek(0, 0)
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, &models.RepoError{
				Type: models.ErrSigning,
				Err:  fmt.Errorf("failed to read key: %w", err),
			}
		}
	}

	if len(entityList) == 0 {
		return nil, &models.RepoError{
			Type: models.ErrSigning,
			Err:  fmt.Errorf("no keys found in %s", keyPath),
		}
	}

	entity := entityList[0]

	// Decrypt private key and subkeys if a passphrase was provided
	if passphrase != "" {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, &models.RepoError{
					Type: models.ErrSigning,
					Err:  fmt.Errorf("failed to decrypt private key: %w", err),
				}
			}
		}

		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, &models.RepoError{
						Type: models.ErrSigning,
						Err:  fmt.Errorf("failed to decrypt subkey: %w", err),
					}
				}
			}
		}
	}

	return &GPGSigner{entity: entity}, nil
}

// SignDetached creates an armored detached signature (artifact .sig files,
// repomd.xml.asc)
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA256,
	})
	if err != nil {
		return nil, &models.RepoError{
			Type: models.ErrSigning,
			Err:  fmt.Errorf("failed to create detached signature: %w", err),
		}
	}

	return buf.Bytes(), nil
}

// SignFile writes an armored detached signature beside path
func (s *GPGSigner) SignFile(path string) error {
	logrus.Infof("Signing %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return &models.RepoError{
			Type:     models.ErrSigning,
			Artifact: path,
			Err:      err,
		}
	}

	sig, err := s.SignDetached(data)
	if err != nil {
		return err
	}

	if err := fileutil.WriteFile(path+".sig", sig, 0644); err != nil {
		return &models.RepoError{
			Type:     models.ErrSigning,
			Artifact: path,
			Err:      fmt.Errorf("failed to write signature: %w", err),
		}
	}
	return nil
}

// GetPublicKey returns the public key in armored format
func (s *GPGSigner) GetPublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}

	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
