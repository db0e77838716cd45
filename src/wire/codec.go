package wire

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

func newHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.Canonical = true
	mh.WriteExt = true
	return mh
}

// handle is configured once and never mutated afterwards, which makes it safe
// for concurrent encoders and decoders.
var handle = newHandle()

// Marshal encodes v with the canonical handle.
func Marshal(v interface{}) ([]byte, error) {
	var b bytes.Buffer

	enc := codec.NewEncoder(&b, handle)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, handle)

	return dec.Decode(v)
}
