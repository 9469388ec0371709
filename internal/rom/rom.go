// Package rom loads Space Invaders program images, either as one file or
// as the four 2KB parts shipped in the arcade board's EPROMs.
package rom

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// PartSize is the size of one EPROM part
	PartSize = 0x0800
	// MaxSize is the largest image that fits below video RAM
	MaxSize = 0x2000
)

// Part names one EPROM dump and where it is mapped
type Part struct {
	Name    string
	Address uint16
}

// Parts is the EPROM layout of the Midway board, lowest address first
var Parts = []Part{
	{Name: "invaders.h", Address: 0x0000},
	{Name: "invaders.g", Address: 0x0800},
	{Name: "invaders.f", Address: 0x1000},
	{Name: "invaders.e", Address: 0x1800},
}

// ErrEmpty is returned for a zero length image
var ErrEmpty = errors.New("ROM image is empty")

// LoadError describes a failure to load an image from disk
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load ROM %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ROM is a program image ready to be copied to address 0
type ROM struct {
	data     []byte
	source   string
	checksum string
}

// New wraps an in-memory image
func New(data []byte, source string) (*ROM, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("ROM image is %d bytes, at most %d fit below video RAM", len(data), MaxSize)
	}

	image := make([]byte, len(data))
	copy(image, data)

	sum := sha256.Sum256(image)
	return &ROM{
		data:     image,
		source:   source,
		checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// Load reads path as a single image file, or as a directory of parts
func Load(path string) (*ROM, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	if info.IsDir() {
		return LoadDirectory(path)
	}
	return LoadFromFile(path)
}

// LoadFromFile loads a single image file
func LoadFromFile(filename string) (*ROM, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &LoadError{Path: filename, Err: err}
	}
	defer file.Close()

	rom, err := LoadFromReader(file, filename)
	if err != nil {
		return nil, &LoadError{Path: filename, Err: err}
	}
	return rom, nil
}

// LoadFromReader loads an image from r
func LoadFromReader(r io.Reader, source string) (*ROM, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	return New(data, source)
}

// LoadDirectory assembles the image from the four EPROM parts in dir.
// Every part must be present and exactly PartSize bytes.
func LoadDirectory(dir string) (*ROM, error) {
	image := make([]byte, MaxSize)

	for _, part := range Parts {
		filename := filepath.Join(dir, part.Name)
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, &LoadError{Path: filename, Err: err}
		}
		if len(data) != PartSize {
			return nil, &LoadError{
				Path: filename,
				Err:  fmt.Errorf("part is %d bytes, expected %d", len(data), PartSize),
			}
		}
		copy(image[part.Address:], data)
	}

	return New(image, dir)
}

// Data returns a copy of the image
func (r *ROM) Data() []byte {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return data
}

// Size returns the image length in bytes
func (r *ROM) Size() int {
	return len(r.data)
}

// Source returns the file or directory the image came from
func (r *ROM) Source() string {
	return r.source
}

// Checksum returns the hex SHA-256 of the image
func (r *ROM) Checksum() string {
	return r.checksum
}
