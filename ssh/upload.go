// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
)

// archiveWrapperDir is a synthetic top-level directory every entry is
// written under, so extracting with --strip-components 1 removes only
// this wrapper and never collapses or drops real entries of localDir.
const archiveWrapperDir = "content"

// tarGzipDir archives localDir into a new temporary .tar.gz file,
// skipping any entry for which ignore returns true, and returns the
// archive's path. The caller owns removing it afterward.
func tarGzipDir(localDir string, ignore func(relPath string) bool) (string, error) {
	tmp, err := os.CreateTemp("", "spur-upload-*.tar.gz")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if ignore != nil && ignore(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = path.Join(archiveWrapperDir, filepath.ToSlash(rel))
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		return "", walkErr
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
