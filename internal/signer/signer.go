package signer

// Signer produces detached signatures for repository artifacts and metadata.
type Signer interface {
	// SignDetached creates an armored detached signature for data.
	SignDetached(data []byte) ([]byte, error)

	// SignFile writes an armored detached signature beside path, as
	// path + ".sig".
	SignFile(path string) error

	// GetPublicKey returns the public key in armored format.
	GetPublicKey() ([]byte, error)
}
