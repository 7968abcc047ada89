// Package source resolves artifact source expressions into local file paths
// the catalog can ingest: plain files, directories (recursive), http(s) URLs
// (downloaded to a temp dir) and conf: source-list files.
package source

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
)

// downloadRetries is how many times a GET is attempted before giving up.
const downloadRetries = 3

// Loader expands source expressions, materializing remote ones locally.
type Loader struct {
	tempDir string
	client  *http.Client
	stdin   io.Reader
}

// NewLoader creates a loader that stores downloads under tempDir.
func NewLoader(tempDir string) *Loader {
	return &Loader{
		tempDir: tempDir,
		client:  &http.Client{},
		stdin:   os.Stdin,
	}
}

// Expand resolves one source expression into local file paths.
func (l *Loader) Expand(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)

	switch {
	case expr == "":
		return nil, nil
	case strings.HasPrefix(expr, "conf:"):
		return l.expandConf(strings.TrimPrefix(expr, "conf:"))
	case strings.HasPrefix(expr, "http:"), strings.HasPrefix(expr, "https:"):
		path, err := l.download(expr)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	info, err := os.Stat(expr)
	if err != nil {
		return nil, &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: expr,
			Err:      err,
		}
	}
	if info.IsDir() {
		return expandDir(expr)
	}
	return []string{expr}, nil
}

// expandConf reads a source-list file (or stdin) with one expression per
// line; blank lines and #-comments are skipped.
func (l *Loader) expandConf(path string) ([]string, error) {
	var r io.Reader
	if path == "stdin" {
		r = l.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, &models.RepoError{
				Type:     models.ErrMalformedPath,
				Artifact: path,
				Err:      err,
			}
		}
		defer f.Close()
		r = f
	}

	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		expanded, err := l.Expand(line)
		if err != nil {
			return nil, err
		}
		paths = append(paths, expanded...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

func expandDir(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// download fetches a URL into the temp dir, retrying transient failures.
func (l *Loader) download(url string) (string, error) {
	name := url[strings.LastIndex(url, "/")+1:]
	if name == "" {
		return "", &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: url,
			Err:      fmt.Errorf("trailing slash in %s, unable to guess artifact name", url),
		}
	}

	if err := os.MkdirAll(l.tempDir, 0755); err != nil {
		return "", err
	}
	dest := filepath.Join(l.tempDir, name)

	var lastErr error
	for attempt := 1; attempt <= downloadRetries; attempt++ {
		logrus.Infof("Downloading %s (attempt %d/%d)", url, attempt, downloadRetries)
		if lastErr = l.downloadOnce(url, dest); lastErr == nil {
			return dest, nil
		}
		logrus.Warnf("Download failed: %v", lastErr)
	}

	return "", &models.RepoError{
		Type:     models.ErrDownload,
		Artifact: url,
		Err:      lastErr,
	}
}

func (l *Loader) downloadOnce(url, dest string) error {
	resp, err := l.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
