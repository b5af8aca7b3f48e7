package usda

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chazu/kiln/pkg/scene"
	"github.com/h2non/filetype"
)

// Fatal load and save errors. Returned errors wrap one of these.
var (
	ErrNotFound          = errors.New("usda: file not found")
	ErrIO                = errors.New("usda: i/o error")
	ErrUnsupportedFormat = errors.New("usda: unsupported format")
)

// Extensions accepted by LoadFile.
var Extensions = []string{".usda", ".usdc", ".usd", ".usdz"}

// Decoder turns the raw bytes of one layer into a Document. Decoders for
// binary formats produce the same Prim records the text parser does.
type Decoder func(data []byte) (*Document, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{}
)

// RegisterDecoder installs a decoder for a file extension such as ".usdc".
func RegisterDecoder(ext string, d Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[strings.ToLower(ext)] = d
}

func decoderFor(ext string) Decoder {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	return decoders[strings.ToLower(ext)]
}

// crateType identifies binary USD crate files by their "PXR-USDC" magic.
var crateType = filetype.NewType("usdc", "model/vnd.usd+crate")

func init() {
	decoders[".usda"] = decodeText
	decoders[".usd"] = decodeSniffed
	decoders[".usdz"] = decodePackage

	filetype.AddMatcher(crateType, func(buf []byte) bool {
		return bytes.HasPrefix(buf, []byte("PXR-USDC"))
	})
}

func decodeText(data []byte) (*Document, error) {
	return Parse(string(data)), nil
}

func decodeWith(ext string, data []byte) (*Document, error) {
	dec := decoderFor(ext)
	if dec == nil {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedFormat, ext)
	}
	return dec(data)
}

// decodeSniffed handles .usd, which may hold text, crate or a package.
func decodeSniffed(data []byte) (*Document, error) {
	switch {
	case filetype.IsType(data, crateType):
		return decodeWith(".usdc", data)
	case filetype.Is(data, "zip"):
		return decodePackage(data)
	default:
		return decodeText(data)
	}
}

// decodePackage reads a .usdz archive. The first layer in the archive is
// the root layer.
func decodePackage(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: usdz: %w", ErrUnsupportedFormat, err)
	}
	for _, f := range zr.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".usda" && ext != ".usdc" && ext != ".usd" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: usdz %s: %w", ErrIO, f.Name, err)
		}
		layer, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: usdz %s: %w", ErrIO, f.Name, err)
		}
		if ext == ".usd" {
			if filetype.Is(layer, "zip") {
				return nil, fmt.Errorf("%w: nested package %s", ErrUnsupportedFormat, f.Name)
			}
			return decodeSniffed(layer)
		}
		return decodeWith(ext, layer)
	}
	return nil, fmt.Errorf("%w: usdz has no scene layer", ErrUnsupportedFormat)
}

// LoadFile replaces the contents of s with the scene stored at path and
// names the scene after the file stem. On a fatal error s is left cleared.
// The returned issues describe content that was skipped or defaulted.
func LoadFile(s *scene.Scene, path string) ([]scene.Issue, error) {
	s.Clear()

	ext := strings.ToLower(filepath.Ext(path))
	if decoderFor(ext) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	doc, err := decodeWith(ext, data)
	if err != nil {
		s.Clear()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	issues := doc.Apply(s)
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return issues, nil
}

// SaveFile writes s as text to path. Only .usda and .usd targets are
// accepted. The file is written to a temporary sibling and renamed into
// place so a failed save never truncates an existing scene.
func SaveFile(s *scene.Scene, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".usda" && ext != ".usd" {
		return fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".kiln-*.usda")
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	defer os.Remove(tmp.Name())
	_ = tmp.Chmod(0o644)

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrIO, path, err)
	}
	return nil
}
