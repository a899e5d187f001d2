//go:build windows

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func accessReadWrite(path string) error {
	f, err := os.CreateTemp(path, ".contentpub-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func accessExecute(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".bat", ".cmd", ".com":
		return nil
	default:
		return fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
}
