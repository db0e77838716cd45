package transaction

import (
	"github.com/mosaicnetworks/hgclient/src/entity"
)

// Body is the kind-specific part of a transaction.
type Body interface {
	// Kind is the discriminator stored in the transaction body.
	Kind() string

	// Method is the service method transactions of this kind are sent to.
	Method() string

	// Encode serializes the payload. Chunked bodies receive the slice of
	// their payload carried by the chunk being encoded, others receive nil.
	Encode(chunk []byte) ([]byte, error)

	// Entities lists the entity ids referenced by the body, for checksum
	// validation.
	Entities() []entity.ID
}

// ChunkedBody is a Body whose payload may be split over several chunks.
type ChunkedBody interface {
	Body

	// Payload is the full content to split.
	Payload() []byte

	// ChunkSize is the default size of a chunk.
	ChunkSize() int

	// MaxChunks is the default limit on the number of chunks.
	MaxChunks() int

	// ReceiptBetweenChunks requires the receipt of each chunk before the next
	// one is sent.
	ReceiptBetweenChunks() bool
}

// chunkCount returns ceil(size/chunkSize), with one chunk for an empty
// payload.
func chunkCount(size, chunkSize int) int {
	if size == 0 {
		return 1
	}
	return (size + chunkSize - 1) / chunkSize
}
