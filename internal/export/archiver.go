package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Archive bundles files into a Deflate-compressed ZIP at zipPath. Entries
// are named by base name only and appear in argument order. After the
// archive is sealed the input files are deleted; on failure the partial
// archive is removed and the inputs are left for the caller's cleanup.
func Archive(zipPath string, files ...string) error {
	out, err := os.OpenFile(zipPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return ioErr(StageArchiving, "create", zipPath, err)
	}

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			zw.Close()
			out.Close()
			os.Remove(zipPath)
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(zipPath)
		return ioErr(StageArchiving, "finalize", zipPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(zipPath)
		return ioErr(StageArchiving, "close", zipPath, err)
	}

	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return ioErr(StageArchiving, "remove", file, err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ioErr(StageArchiving, "open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ioErr(StageArchiving, "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return ioErr(StageArchiving, "add", path, fmt.Errorf("not a regular file"))
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return ioErr(StageArchiving, "add", path, err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return ioErr(StageArchiving, "add", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return ioErr(StageArchiving, "read", path, err)
	}
	return nil
}
