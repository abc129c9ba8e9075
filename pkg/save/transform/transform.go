// Package transform implements the reversible byte transform applied to save
// records before they reach disk.
//
// Every byte is XOR-ed with the corresponding byte of a keystream formed by
// repeating the key's UTF-8 bytes. Applying the transform twice with the same
// key restores the input.
//
// This is obfuscation, not encryption. It keeps casual readers and hex editors
// from reading or tweaking a save file; it provides no confidentiality against
// anyone who has the binary. Tamper evidence comes from the record checksum,
// not from this package. Callers that need real secrecy must encrypt with an
// authenticated cipher before handing bytes to the store.
package transform

import "errors"

// ErrInvalidKey indicates an empty key was supplied.
//
// This is a configuration error: set a non-empty key.
var ErrInvalidKey = errors.New("transform: invalid key")

// Keystream is a validated, immutable key.
//
// The zero value is not usable; construct with [NewKeystream].
type Keystream struct {
	key []byte
}

// NewKeystream returns a keystream for key. Returns [ErrInvalidKey] if key is empty.
func NewKeystream(key string) (Keystream, error) {
	if key == "" {
		return Keystream{}, ErrInvalidKey
	}

	return Keystream{key: []byte(key)}, nil
}

// Len returns the keystream period in bytes.
func (k Keystream) Len() int {
	return len(k.key)
}

// XOR writes src ^ keystream into dst and returns the number of bytes written,
// min(len(dst), len(src)). dst and src may be the same slice.
//
// Panics if k is the zero value.
func (k Keystream) XOR(dst, src []byte) int {
	if len(k.key) == 0 {
		panic("transform: zero Keystream")
	}

	n := min(len(dst), len(src))
	period := len(k.key)

	for i := range n {
		dst[i] = src[i] ^ k.key[i%period]
	}

	return n
}

// Apply returns a new slice holding data XOR-ed with key.
//
// Apply is its own inverse: Apply(Apply(b, k), k) equals b for every
// non-empty k. Returns [ErrInvalidKey] if key is empty.
func Apply(data []byte, key string) ([]byte, error) {
	ks, err := NewKeystream(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	ks.XOR(out, data)

	return out, nil
}
