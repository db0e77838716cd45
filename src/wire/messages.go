package wire

// EntityID is the wire form of a shard.realm.num identifier.
type EntityID struct {
	Shard int64 `codec:"shard"`
	Realm int64 `codec:"realm"`
	Num   int64 `codec:"num"`
}

// Timestamp is a point in time split into seconds and nanoseconds.
type Timestamp struct {
	Seconds int64 `codec:"seconds"`
	Nanos   int32 `codec:"nanos"`
}

// TransactionID identifies one logical operation.
type TransactionID struct {
	AccountID  EntityID  `codec:"account"`
	ValidStart Timestamp `codec:"validStart"`
	Nonce      int32     `codec:"nonce,omitempty"`
	Scheduled  bool      `codec:"scheduled,omitempty"`
}

// ChunkInfo links one chunk of a split payload to the chain it belongs to.
// Number is 1-based.
type ChunkInfo struct {
	InitialTransactionID TransactionID `codec:"initialTransactionID"`
	Number               int32         `codec:"number"`
	Total                int32         `codec:"total"`
}

// TransactionBody is the part of a transaction covered by signatures. Kind
// names the payload carried in Data.
type TransactionBody struct {
	TransactionID  TransactionID `codec:"transactionID"`
	NodeAccountID  EntityID      `codec:"nodeAccountID"`
	TransactionFee uint64        `codec:"transactionFee"`
	ValidDuration  int64         `codec:"validDuration"`
	Memo           string        `codec:"memo,omitempty"`
	ChunkInfo      *ChunkInfo    `codec:"chunkInfo,omitempty"`
	Kind           string        `codec:"kind"`
	Data           []byte        `codec:"data"`
}

// SignaturePair is one signature together with the full public key that
// produced it. Exactly one of Ed25519 and ECDSASecp256k1 is set.
type SignaturePair struct {
	PubKey         []byte `codec:"pubKey"`
	Ed25519        []byte `codec:"ed25519,omitempty"`
	ECDSASecp256k1 []byte `codec:"ecdsaSecp256k1,omitempty"`
}

// SignatureMap holds every signature collected for one body.
type SignatureMap struct {
	Pairs []SignaturePair `codec:"sigPair"`
}

// SignedTransaction binds body bytes to their signatures.
type SignedTransaction struct {
	BodyBytes []byte       `codec:"bodyBytes"`
	SigMap    SignatureMap `codec:"sigMap"`
}

// Transaction is the envelope submitted to a node.
type Transaction struct {
	SignedTransactionBytes []byte `codec:"signedTransactionBytes"`
}

// TransactionList is the serialized form of a frozen transaction: one
// envelope per node and chunk.
type TransactionList struct {
	Transactions []Transaction `codec:"transactionList"`
}

// TransactionResponse is the precheck answer to a submitted transaction.
type TransactionResponse struct {
	Status Status `codec:"nodeTransactionPrecheckCode"`
	Cost   uint64 `codec:"cost"`
}

// QueryHeader carries the payment and the kind of answer wanted.
type QueryHeader struct {
	Payment      []byte       `codec:"payment,omitempty"`
	ResponseType ResponseType `codec:"responseType"`
}

// Query is a read-only request.
type Query struct {
	Header QueryHeader `codec:"header"`
	Kind   string      `codec:"kind"`
	Data   []byte      `codec:"data"`
}

// ResponseHeader is common to every query response.
type ResponseHeader struct {
	Status       Status       `codec:"nodeTransactionPrecheckCode"`
	ResponseType ResponseType `codec:"responseType"`
	Cost         uint64       `codec:"cost"`
}

// Response answers a Query. Data holds the kind-specific payload.
type Response struct {
	Header ResponseHeader `codec:"header"`
	Kind   string         `codec:"kind"`
	Data   []byte         `codec:"data"`

	raw []byte
}

// DecodeResponse decodes a response and keeps the bytes it came from.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := Unmarshal(data, &r); err != nil {
		return nil, err
	}
	r.raw = append([]byte(nil), data...)
	return &r, nil
}

// Bytes returns the encoded response. A decoded response returns exactly the
// bytes it was decoded from, including fields this package does not know.
func (r *Response) Bytes() ([]byte, error) {
	if r.raw != nil {
		return append([]byte(nil), r.raw...), nil
	}
	return Marshal(r)
}
