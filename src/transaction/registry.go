package transaction

import (
	"fmt"

	"github.com/mosaicnetworks/hgclient/src/common"
)

// Decoder rebuilds a Body from the payload of each of its chunks, in order.
// Bodies that are not chunked receive a single payload.
type Decoder func(chunks [][]byte) (Body, error)

// RegistryEntry pairs a body discriminator with its decoder.
type RegistryEntry struct {
	Kind   string
	Decode Decoder
}

// Registry maps body discriminators to decoders. It is built once and only
// read afterwards.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry builds a registry from a list of entries. A later entry replaces
// an earlier one of the same kind.
func NewRegistry(entries ...RegistryEntry) *Registry {
	r := &Registry{decoders: make(map[string]Decoder, len(entries))}
	for _, e := range entries {
		r.decoders[e.Kind] = e.Decode
	}
	return r
}

// DefaultEntries lists the kinds implemented by this package.
func DefaultEntries() []RegistryEntry {
	return []RegistryEntry{
		{Kind: (&Transfer{}).Kind(), Decode: decodeTransfer},
		{Kind: (&FileAppend{}).Kind(), Decode: decodeFileAppend},
		{Kind: (&TopicMessage{}).Kind(), Decode: decodeTopicMessage},
	}
}

// DefaultRegistry returns a registry of the kinds implemented by this package.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultEntries()...)
}

// Decode rebuilds a body of the given kind.
func (r *Registry) Decode(kind string, chunks [][]byte) (Body, error) {
	dec, ok := r.decoders[kind]
	if !ok {
		return nil, common.NewLocalErr("registry", common.UnknownKind, fmt.Sprintf("kind %q", kind))
	}

	body, err := dec(chunks)
	if err != nil {
		return nil, fmt.Errorf("decoding %s body: %w", kind, err)
	}
	return body, nil
}

// Kinds returns the registered discriminators.
func (r *Registry) Kinds() []string {
	res := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		res = append(res, k)
	}
	return res
}
