package transaction

import (
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Chunking defaults of file appends.
const (
	FileAppendChunkSize = 4096
	FileAppendMaxChunks = 20
)

// FileAppend appends contents to a file. The ledger applies the chunks of a
// large append one after the other, so each chunk waits for the receipt of
// the previous one.
type FileAppend struct {
	FileID   entity.FileID
	Contents []byte
}

// NewFileAppendTransaction ...
func NewFileAppendTransaction(file entity.FileID, contents []byte) *Builder[*FileAppend] {
	return NewBuilder(&FileAppend{FileID: file, Contents: contents})
}

// Kind implements Body.
func (f *FileAppend) Kind() string {
	return wire.KindFileAppend
}

// Method implements Body.
func (f *FileAppend) Method() string {
	return wire.MethodFileAppend
}

// Encode implements Body.
func (f *FileAppend) Encode(chunk []byte) ([]byte, error) {
	return wire.Marshal(&wire.FileAppendBody{FileID: f.FileID.ToWire(), Contents: chunk})
}

// Entities implements Body.
func (f *FileAppend) Entities() []entity.ID {
	return []entity.ID{f.FileID}
}

// Payload implements ChunkedBody.
func (f *FileAppend) Payload() []byte {
	return f.Contents
}

// ChunkSize implements ChunkedBody.
func (f *FileAppend) ChunkSize() int {
	return FileAppendChunkSize
}

// MaxChunks implements ChunkedBody.
func (f *FileAppend) MaxChunks() int {
	return FileAppendMaxChunks
}

// ReceiptBetweenChunks implements ChunkedBody.
func (f *FileAppend) ReceiptBetweenChunks() bool {
	return true
}

func decodeFileAppend(chunks [][]byte) (Body, error) {
	f := &FileAppend{}
	for _, c := range chunks {
		var body wire.FileAppendBody
		if err := wire.Unmarshal(c, &body); err != nil {
			return nil, err
		}
		f.FileID = entity.FromWire(body.FileID)
		f.Contents = append(f.Contents, body.Contents...)
	}
	return f, nil
}
