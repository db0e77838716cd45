package transaction

import (
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/mosaicnetworks/hgclient/src/wire"
)

// Chunking defaults of topic messages.
const (
	TopicMessageChunkSize = 1024
	TopicMessageMaxChunks = 20
)

// TopicMessage submits a message to a consensus topic. Large messages are
// split into chunks that the topic reassembles by their initial transaction
// id.
type TopicMessage struct {
	TopicID entity.TopicID
	Message []byte
}

// NewTopicMessageTransaction ...
func NewTopicMessageTransaction(topic entity.TopicID, message []byte) *Builder[*TopicMessage] {
	return NewBuilder(&TopicMessage{TopicID: topic, Message: message})
}

// Kind implements Body.
func (m *TopicMessage) Kind() string {
	return wire.KindTopicMessageSubmit
}

// Method implements Body.
func (m *TopicMessage) Method() string {
	return wire.MethodSubmitMessage
}

// Encode implements Body.
func (m *TopicMessage) Encode(chunk []byte) ([]byte, error) {
	return wire.Marshal(&wire.TopicMessageSubmitBody{TopicID: m.TopicID.ToWire(), Message: chunk})
}

// Entities implements Body.
func (m *TopicMessage) Entities() []entity.ID {
	return []entity.ID{m.TopicID}
}

// Payload implements ChunkedBody.
func (m *TopicMessage) Payload() []byte {
	return m.Message
}

// ChunkSize implements ChunkedBody.
func (m *TopicMessage) ChunkSize() int {
	return TopicMessageChunkSize
}

// MaxChunks implements ChunkedBody.
func (m *TopicMessage) MaxChunks() int {
	return TopicMessageMaxChunks
}

// ReceiptBetweenChunks implements ChunkedBody.
func (m *TopicMessage) ReceiptBetweenChunks() bool {
	return false
}

func decodeTopicMessage(chunks [][]byte) (Body, error) {
	m := &TopicMessage{}
	for _, c := range chunks {
		var body wire.TopicMessageSubmitBody
		if err := wire.Unmarshal(c, &body); err != nil {
			return nil, err
		}
		m.TopicID = entity.FromWire(body.TopicID)
		m.Message = append(m.Message, body.Message...)
	}
	return m, nil
}
