package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/ui"
)

// readSource checks that path is a readable regular UTF-8 file no larger than
// maxSize and returns its bytes. Every failure is detected before any write.
func readSource(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, mapFileErr(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ramerrors.New(ramerrors.ErrCodeFileNotFound,
			fmt.Sprintf("%s is not a regular file", path), nil).
			WithDetail("path", path).
			WithSuggestion("pass a single text file; directories are not indexed")
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, sizeErr(path, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapFileErr(path, err)
	}
	// The file may have grown between stat and read.
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, sizeErr(path, int64(len(data)), maxSize)
	}
	if !utf8.Valid(data) {
		return nil, ramerrors.New(ramerrors.ErrCodeEncoding,
			fmt.Sprintf("%s is not valid UTF-8 text", path), nil).
			WithDetail("path", path).
			WithSuggestion("convert the file to UTF-8; binary files cannot be indexed")
	}
	return data, nil
}

func mapFileErr(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ramerrors.New(ramerrors.ErrCodeFileNotFound,
			fmt.Sprintf("file not found: %s", path), err).
			WithDetail("path", path)
	case errors.Is(err, fs.ErrPermission):
		return ramerrors.New(ramerrors.ErrCodeFilePermission,
			fmt.Sprintf("permission denied: %s", path), err).
			WithDetail("path", path).
			WithSuggestion("check that the file is readable by the current user")
	default:
		return ramerrors.New(ramerrors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot access %s", path), err).
			WithDetail("path", path)
	}
}

func sizeErr(path string, size, limit int64) error {
	return ramerrors.New(ramerrors.ErrCodeFileTooLarge,
		fmt.Sprintf("%s is %s, limit is %s", path, ui.FormatBytes(size), ui.FormatBytes(limit)), nil).
		WithDetail("path", path).
		WithDetail("size", fmt.Sprintf("%d", size)).
		WithSuggestion("raise indexing.max_file_size or RAM_MAX_FILE_SIZE, or split the file")
}
