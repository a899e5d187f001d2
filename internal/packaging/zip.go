package packaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"
)

// Extensions is a set of lowercase file extensions including the dot.
type Extensions []string

// Match reports whether name ends in one of the extensions, ignoring case.
func (e Extensions) Match(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, candidate := range e {
		if ext == candidate {
			return true
		}
	}
	return false
}

// CountEntries counts files in the zip whose names match exts.
func CountEntries(ctx context.Context, zipPath string, exts Extensions) (int, error) {
	count := 0
	err := walkZip(ctx, zipPath, func(_ context.Context, info archives.FileInfo) error {
		if !info.IsDir() && exts.Match(info.NameInArchive) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Extract unpacks every entry of the zip beneath dest. Entries that would
// land outside dest are rejected.
func Extract(ctx context.Context, zipPath, dest string) error {
	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dest, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", root, err)
	}
	return walkZip(ctx, zipPath, func(_ context.Context, info archives.FileInfo) error {
		target, err := safeJoin(root, info.NameInArchive)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		return writeEntry(info, target)
	})
}

func writeEntry(info archives.FileInfo, target string) error {
	src, err := info.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", info.NameInArchive, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("extract %s: %w", info.NameInArchive, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	if mod := info.ModTime(); !mod.IsZero() {
		_ = os.Chtimes(target, mod, mod)
	}
	return nil
}

func safeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(path.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	target := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("zip entry %q escapes destination", name)
	}
	return target, nil
}

func walkZip(ctx context.Context, zipPath string, handle archives.FileHandler) error {
	file, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer file.Close()
	if err := (archives.Zip{}).Extract(ctx, file, handle); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(zipPath), err)
	}
	return nil
}

// Folder selects the directory to repackage.
type Folder struct {
	Name     string
	FoldCase bool
}

func (f Folder) matches(name string) bool {
	if f.FoldCase {
		return strings.EqualFold(name, f.Name)
	}
	return name == f.Name
}

// FindFolder returns the first directory under root named like folder,
// searching breadth-first so the shallowest match wins.
func FindFolder(root string, folder Folder) (string, error) {
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			full := filepath.Join(dir, entry.Name())
			if folder.matches(entry.Name()) {
				return full, nil
			}
			queue = append(queue, full)
		}
	}
	return "", fmt.Errorf("could not find %s folder in %s: %w", folder.Name, root, fs.ErrNotExist)
}

// Repackage zips the files under the folder found beneath searchRoot whose
// extensions match exts. Paths inside the output are relative to that folder.
// It returns the number of files written.
func Repackage(ctx context.Context, searchRoot string, folder Folder, exts Extensions, output string) (int, error) {
	source, err := FindFolder(searchRoot, folder)
	if err != nil {
		return 0, err
	}

	mapping := make(map[string]string)
	err = filepath.WalkDir(source, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !exts.Match(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		mapping[p] = filepath.ToSlash(rel)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", source, err)
	}

	files, err := archives.FilesFromDisk(ctx, nil, mapping)
	if err != nil {
		return 0, fmt.Errorf("collect files from %s: %w", source, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].NameInArchive < files[j].NameInArchive })

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Dir(output), err)
	}
	out, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", output, err)
	}
	if err := (archives.Zip{}).Archive(ctx, out, files); err != nil {
		_ = out.Close()
		_ = os.Remove(output)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(output), err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", output, err)
	}
	return len(files), nil
}

// IsNotFound reports whether err means a folder or archive was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrArchivesMissing)
}
