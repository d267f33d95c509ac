// Package image reads and writes compiled program images (.bfi files).
//
// An image is a small container: a 4-byte magic, a version word, and a
// canonical CBOR payload holding the program text, its resolved jump
// table, and a SHA-256 content hash. Only programs are serialized — never
// tape or cursor state.
package image

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/bfvm/vm"
)

// Magic identifies a bfvm image file.
var Magic = [4]byte{'B', 'F', 'I', 'M'}

// Version of the image format.
// v1: initial format (name, code, jump table, content hash)
const Version uint32 = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Image is a compiled program with its metadata.
type Image struct {
	Name  string   `cbor:"name"`
	Code  []byte   `cbor:"code"`
	Jumps []int    `cbor:"jumps"`
	Hash  [32]byte `cbor:"hash"`
}

// New compiles code and wraps it in an image. The code must pass the full
// static analysis; malformed programs are rejected here, not at load time.
func New(name string, code []byte) (*Image, error) {
	p, err := vm.Compile(code)
	if err != nil {
		return nil, fmt.Errorf("image: compile %q: %w", name, err)
	}
	return &Image{
		Name:  name,
		Code:  p.Code,
		Jumps: p.Jumps,
		Hash:  sha256.Sum256(p.Code),
	}, nil
}

// Program returns the executable form of the image.
func (img *Image) Program() *vm.Program {
	return &vm.Program{Code: img.Code, Jumps: vm.JumpTable(img.Jumps)}
}

// Write serializes the image: magic, big-endian version, CBOR payload.
func (img *Image) Write(w io.Writer) error {
	payload, err := cborEncMode.Marshal(img)
	if err != nil {
		return fmt.Errorf("image: marshal %q: %w", img.Name, err)
	}
	if _, err := w.Write(Magic[:]); err != nil {
		return fmt.Errorf("image: write magic: %w", err)
	}
	var version [4]byte
	binary.BigEndian.PutUint32(version[:], Version)
	if _, err := w.Write(version[:]); err != nil {
		return fmt.Errorf("image: write version: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("image: write payload: %w", err)
	}
	return nil
}

// Read deserializes an image and verifies its integrity: magic, version,
// content hash, and jump table shape all have to check out before the
// image is handed to callers.
func Read(r io.Reader) (*Image, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("image: read header: %w", err)
	}
	if !bytes.Equal(header[:4], Magic[:]) {
		return nil, fmt.Errorf("image: bad magic %q", header[:4])
	}
	if v := binary.BigEndian.Uint32(header[4:]); v != Version {
		return nil, fmt.Errorf("image: unsupported version %d, want %d", v, Version)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("image: read payload: %w", err)
	}
	var img Image
	if err := cbor.Unmarshal(payload, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal payload: %w", err)
	}

	if got := sha256.Sum256(img.Code); got != img.Hash {
		return nil, fmt.Errorf("image: content hash mismatch for %q", img.Name)
	}
	if len(img.Jumps) != len(img.Code) {
		return nil, fmt.Errorf("image: jump table of %d entries for %d-byte program", len(img.Jumps), len(img.Code))
	}
	return &img, nil
}

// WriteFile writes the image to path.
func WriteFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("image: create %s: %w", path, err)
	}
	defer f.Close()
	if err := img.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// ReadFile loads an image from path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
