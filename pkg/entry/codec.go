package entry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the current entry serialization format version. Stored
// entries carry the version they were written with; decoding an entry
// written with a different version fails with ErrIncompatibleVersion,
// which callers treat as a cache miss.
const Version = 1

// ErrIncompatibleVersion indicates stored bytes were written with an
// unknown or incompatible format version.
var ErrIncompatibleVersion = errors.New("incompatible cache entry version")

// Codec serializes entries to and from the bytes a store persists.
type Codec interface {
	Encode(e *Entry) ([]byte, error)
	Decode(data []byte) (*Entry, error)
}

// JSONCodec encodes entries as a versioned JSON envelope.
type JSONCodec struct{}

type envelope struct {
	Version int    `json:"version"`
	Entry   *Entry `json:"entry"`
}

// Encode marshals the entry with the current format version.
func (JSONCodec) Encode(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("entry cannot be nil")
	}
	data, err := json.Marshal(envelope{Version: Version, Entry: e})
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// Decode unmarshals stored bytes into an entry. Corrupt bytes or a
// version mismatch return an error wrapping ErrIncompatibleVersion.
func (JSONCodec) Decode(data []byte) (*Entry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: got version %d, want %d", ErrIncompatibleVersion, env.Version, Version)
	}
	if env.Entry == nil {
		return nil, fmt.Errorf("%w: empty envelope", ErrIncompatibleVersion)
	}
	return env.Entry, nil
}
