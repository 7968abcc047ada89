package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsType(t *testing.T) {
	base := &RepoError{Type: ErrSigning, Artifact: "pkg-1.0.src.rpm", Err: errors.New("no key")}
	wrapped := fmt.Errorf("failed to extract %s: %w", base.Artifact, base)

	if !IsType(base, ErrSigning) {
		t.Error("direct error not matched")
	}
	if !IsType(wrapped, ErrSigning) {
		t.Error("wrapped error not matched")
	}
	if IsType(wrapped, ErrDownload) {
		t.Error("matched the wrong type")
	}
	if IsType(errors.New("plain"), ErrSigning) {
		t.Error("matched a plain error")
	}
	if IsType(nil, ErrSigning) {
		t.Error("matched nil")
	}
}

func TestRepoErrorMessage(t *testing.T) {
	withArtifact := &RepoError{Type: ErrMalformedPath, Artifact: "bad.name", Err: errors.New("no version")}
	if got := withArtifact.Error(); got != "[MalformedPath] bad.name: no version" {
		t.Errorf("Error() = %q", got)
	}

	bare := &RepoError{Type: ErrInvalidRetention, Err: errors.New("keep must be >0")}
	if got := bare.Error(); got != "[InvalidRetention] keep must be >0" {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(withArtifact, withArtifact.Err) {
		t.Error("Unwrap does not expose the cause")
	}
}
