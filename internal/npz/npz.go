package npz

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// EncodeNPZ writes a compressed npz container holding exactly one named
// array, mirroring numpy's savez_compressed output for a single keyword.
func EncodeNPZ(w io.Writer, name string, a Array) error {
	zw := zip.NewWriter(w)

	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name + ".npy",
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("failed to create npz member %s: %w", name, err)
	}

	if err := EncodeNPY(f, a); err != nil {
		return fmt.Errorf("failed to encode npz member %s: %w", name, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize npz container: %w", err)
	}
	return nil
}

// DecodeNPZ extracts the named array from an npz container.
func DecodeNPZ(data []byte, name string) (Array, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Array{}, fmt.Errorf("failed to open npz container: %w", err)
	}

	member := name + ".npy"
	for _, f := range zr.File {
		if f.Name != member {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return Array{}, fmt.Errorf("failed to open npz member %s: %w", member, err)
		}
		defer rc.Close()

		arr, err := DecodeNPY(rc)
		if err != nil {
			return Array{}, fmt.Errorf("failed to decode npz member %s: %w", member, err)
		}
		return arr, nil
	}

	return Array{}, fmt.Errorf("npz container has no member %s", member)
}
