package policyopa

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	cryptoinfra "contractflow/internal/infra/crypto"
)

type policyFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

type policyManifest struct {
	Policies []policyFile `json:"policies"`
}

// PolicyHashFromDir fingerprints the .rego files under dir. The hash is
// reported on /health and recorded with the active guard at startup.
func PolicyHashFromDir(dir string) (string, error) {
	return PolicyHashFromFS(os.DirFS(dir))
}

// PolicyHashFromFS hashes the canonical JSON list of (name, sha256) pairs,
// sorted by name. Hidden entries and editor leftovers do not count.
func PolicyHashFromFS(fsys fs.FS) (string, error) {
	var files []policyFile
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if ignoredEntry(path.Base(name)) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || path.Ext(name) != ".rego" {
			return nil
		}
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		files = append(files, policyFile{Name: name, SHA256: cryptoinfra.SHA256Hex(src)})
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	canonical, err := cryptoinfra.CanonicalizeAny(policyManifest{Policies: files})
	if err != nil {
		return "", err
	}
	return cryptoinfra.SHA256Hex(canonical), nil
}

func ignoredEntry(base string) bool {
	switch {
	case strings.HasPrefix(base, "."), strings.HasSuffix(base, "~"):
		return true
	case base == "vendor", base == "__MACOSX":
		return true
	}
	return false
}
