package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// ErrReadNotSupported is returned when Read is called on a bytes provider.
var ErrReadNotSupported = errors.New("confloader: Read not supported by bytes provider, use ReadBytes() instead")

// mapProvider is a koanf provider that loads configuration from a map.
// Dotted keys ("server.redis.addr") are expanded into nested maps.
type mapProvider map[string]any

// ReadBytes returns an error as map provider doesn't support byte serialization.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}

// bytesProvider is a koanf provider over an in-memory document that must be
// paired with a parser.
type bytesProvider []byte

// ReadBytes returns the raw document.
func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

// Read returns an error as the document needs a parser.
func (b bytesProvider) Read() (map[string]any, error) {
	return nil, ErrReadNotSupported
}
