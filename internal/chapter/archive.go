package chapter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// WriteArchive packs the regular files directly inside dir into a
// deflate-compressed zip at path. The archive is written to path+".part"
// and renamed into place once complete.
func WriteArchive(dir, path string) error {
	files, err := listFiles(dir, "")
	if err != nil {
		return err
	}
	return writeZip(files, path)
}

// WriteBundle packs several chapter directories into one zip at path. Each
// directory becomes a folder prefixed with its position in dirs, so readers
// keep the batch order.
func WriteBundle(dirs []string, path string) error {
	var files []zipEntry
	for i, dir := range dirs {
		prefix := fmt.Sprintf("%05d_%s/", i, filepath.Base(dir))
		entries, err := listFiles(dir, prefix)
		if err != nil {
			return err
		}
		files = append(files, entries...)
	}
	return writeZip(files, path)
}

type zipEntry struct {
	src  string
	name string
}

// listFiles returns the regular files directly inside dir sorted by name
func listFiles(dir, prefix string) ([]zipEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]zipEntry, len(names))
	for i, name := range names {
		files[i] = zipEntry{src: filepath.Join(dir, name), name: prefix + name}
	}
	return files, nil
}

func writeZip(files []zipEntry, path string) error {
	tempPath := path + ".part"
	err := createZip(files, tempPath)
	if err == nil {
		err = os.Rename(tempPath, path)
	}
	if err != nil {
		os.Remove(tempPath)
	}
	return err
}

func createZip(files []zipEntry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, f := range files {
		if err := addFile(zw, f.src, f.name); err != nil {
			return fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return err
	}
	return file.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// ReadArchive returns the contents of every file in the zip at path, keyed by name
func ReadArchive(path string) (map[string][]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files[f.Name] = data
	}
	return files, nil
}
