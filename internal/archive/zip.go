// Package archive produces the single-file zip archives uploaded per
// repository. It preserves paths relative to the archived root and stores
// regular files only, so a mirror clone round-trips exactly.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Zipper compresses a directory tree into a zip file.
type Zipper struct{}

// Compress walks src and writes a deflate-compressed zip archive to dest.
// Entry names are slash-separated paths relative to src.
func (Zipper) Compress(src, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dest, err)
	}

	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("archive %s: %w", src, walkErr)
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize archive %s: %w", dest, err)
	}
	return out.Close()
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
