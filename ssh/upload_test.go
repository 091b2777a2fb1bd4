// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// extractStripOne mimics `tar xzf archivePath --strip-components 1` into
// destDir, returning the set of relative paths it wrote.
func extractStripOne(t *testing.T, archivePath, destDir string) map[string]string {
	t.Helper()
	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()

	written := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar next: %v", err)
		}
		parts := strings.SplitN(filepath.ToSlash(hdr.Name), "/", 2)
		if len(parts) < 2 || parts[1] == "" {
			// A top-level wrapper entry itself (e.g. the "content"
			// directory header) has nothing left after stripping one
			// component; real tar skips it too.
			continue
		}
		stripped := parts[1]
		dest := filepath.Join(destDir, filepath.FromSlash(stripped))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", dest, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				t.Fatalf("mkdir parent of %s: %v", dest, err)
			}
			out, err := os.Create(dest)
			if err != nil {
				t.Fatalf("create %s: %v", dest, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				t.Fatalf("write %s: %v", dest, err)
			}
			out.Close()
			body, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("read back %s: %v", dest, err)
			}
			written[stripped] = string(body)
		}
	}
	return written
}

func TestTarGzipDir_TopLevelFileAndNestedDirSurviveStripComponents(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("top-level"), 0o644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir sub: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "a.go"), []byte("nested"), 0o644); err != nil {
		t.Fatalf("write sub/a.go: %v", err)
	}

	archivePath, err := tarGzipDir(src, nil)
	if err != nil {
		t.Fatalf("tarGzipDir: %v", err)
	}
	defer os.Remove(archivePath)

	dest := t.TempDir()
	written := extractStripOne(t, archivePath, dest)

	if got := written["notes.txt"]; got != "top-level" {
		t.Errorf("notes.txt content = %q, want %q (top-level file must survive strip-components 1)", got, "top-level")
	}
	if got := written["sub/a.go"]; got != "nested" {
		t.Errorf("sub/a.go content = %q, want %q (nested file must keep its directory, not flatten to a.go)", got, "nested")
	}
	if _, flattened := written["a.go"]; flattened {
		t.Error("sub/a.go was flattened to a.go at the destination root")
	}
}

func TestTarGzipDir_RespectsIgnore(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatalf("write keep.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "skip.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write skip.txt: %v", err)
	}

	archivePath, err := tarGzipDir(src, func(rel string) bool { return rel == "skip.txt" })
	if err != nil {
		t.Fatalf("tarGzipDir: %v", err)
	}
	defer os.Remove(archivePath)

	dest := t.TempDir()
	written := extractStripOne(t, archivePath, dest)

	if _, ok := written["keep.txt"]; !ok {
		t.Error("keep.txt missing from archive")
	}
	if _, ok := written["skip.txt"]; ok {
		t.Error("skip.txt should have been ignored")
	}
}
