package gltf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingBuffer is returned by Save when binary data is supplied but the
// document declares no buffer to describe it.
var ErrMissingBuffer = errors.New("gltf: binary payload without buffer descriptor")

// BinPath returns the sibling binary file path for a .gltf path, replacing
// the extension with .bin.
func BinPath(gltfPath string) string {
	ext := filepath.Ext(gltfPath)
	return strings.TrimSuffix(gltfPath, ext) + ".bin"
}

// Save writes the document to path as JSON and, when bin is non-empty, the
// packed binary payload to the sibling .bin file. The document's buffer URI
// is set to the .bin file's base name before encoding.
func Save(doc *Document, bin []byte, path string) error {
	if len(bin) > 0 {
		if len(doc.Buffers) == 0 {
			return ErrMissingBuffer
		}
		binPath := BinPath(path)
		doc.Buffers[0].URI = filepath.Base(binPath)
		if err := os.WriteFile(binPath, bin, 0644); err != nil {
			return fmt.Errorf("writing buffer file: %w", err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing document file: %w", err)
	}
	return nil
}
