package wire

// Discriminators of the request kinds known to this package.
const (
	KindCryptoTransfer     = "cryptoTransfer"
	KindFileAppend         = "fileAppend"
	KindTopicMessageSubmit = "consensusSubmitMessage"

	KindAccountBalance     = "cryptogetAccountBalance"
	KindAccountInfo        = "cryptoGetInfo"
	KindTransactionReceipt = "transactionGetReceipt"
)

// Service methods. Channels prefix them with "/proto." when the transport
// needs a full path.
const (
	MethodCryptoTransfer   = "CryptoService/cryptoTransfer"
	MethodFileAppend       = "FileService/appendContent"
	MethodSubmitMessage    = "ConsensusService/submitMessage"
	MethodCryptoGetBalance = "CryptoService/cryptoGetBalance"
	MethodGetAccountInfo   = "CryptoService/getAccountInfo"
	MethodGetReceipt       = "CryptoService/getTransactionReceipts"
)

// AccountAmount is one leg of a transfer.
type AccountAmount struct {
	AccountID EntityID `codec:"accountID"`
	Amount    int64    `codec:"amount"`
}

// CryptoTransferBody moves tinybars between accounts. Amounts sum to zero.
type CryptoTransferBody struct {
	Transfers []AccountAmount `codec:"accountAmounts"`
}

// FileAppendBody appends Contents to a file.
type FileAppendBody struct {
	FileID   EntityID `codec:"fileID"`
	Contents []byte   `codec:"contents"`
}

// TopicMessageSubmitBody submits Message to a consensus topic.
type TopicMessageSubmitBody struct {
	TopicID EntityID `codec:"topicID"`
	Message []byte   `codec:"message"`
}

// AccountBalanceQuery asks for the balance of an account.
type AccountBalanceQuery struct {
	AccountID EntityID `codec:"accountID"`
}

// AccountBalanceResponse answers AccountBalanceQuery.
type AccountBalanceResponse struct {
	AccountID EntityID `codec:"accountID"`
	Balance   uint64   `codec:"balance"`
}

// AccountInfoQuery asks for the details of an account.
type AccountInfoQuery struct {
	AccountID EntityID `codec:"accountID"`
}

// AccountInfoResponse answers AccountInfoQuery.
type AccountInfoResponse struct {
	AccountID      EntityID  `codec:"accountID"`
	Key            []byte    `codec:"key"`
	Balance        uint64    `codec:"balance"`
	Memo           string    `codec:"memo"`
	ExpirationTime Timestamp `codec:"expirationTime"`
	Deleted        bool      `codec:"deleted"`
}

// TransactionReceiptQuery asks for the receipt of a transaction.
type TransactionReceiptQuery struct {
	TransactionID TransactionID `codec:"transactionID"`
}

// TransactionReceipt is the outcome of a transaction once consensus is
// reached.
type TransactionReceipt struct {
	Status              Status    `codec:"status"`
	AccountID           *EntityID `codec:"accountID,omitempty"`
	FileID              *EntityID `codec:"fileID,omitempty"`
	TopicID             *EntityID `codec:"topicID,omitempty"`
	TopicSequenceNumber uint64    `codec:"topicSequenceNumber,omitempty"`
}

// TransactionReceiptResponse answers TransactionReceiptQuery.
type TransactionReceiptResponse struct {
	Receipt TransactionReceipt `codec:"receipt"`
}

// ServiceEndpoint is one address of a node.
type ServiceEndpoint struct {
	IPAddressV4 []byte `codec:"ipAddressV4,omitempty"`
	DomainName  string `codec:"domainName,omitempty"`
	Port        int32  `codec:"port"`
}

// NodeAddress describes one node of the network.
type NodeAddress struct {
	NodeID          int64             `codec:"nodeId"`
	NodeAccountID   EntityID          `codec:"nodeAccountId"`
	ServiceEndpoint []ServiceEndpoint `codec:"serviceEndpoint"`
	RSAPubKey       string            `codec:"RSA_PubKey,omitempty"`
	NodeCertHash    []byte            `codec:"nodeCertHash,omitempty"`
	Description     string            `codec:"description,omitempty"`
	Stake           int64             `codec:"stake,omitempty"`
}

// NodeAddressBook lists the nodes of a network. It is published in a system
// file of the ledger.
type NodeAddressBook struct {
	NodeAddress []NodeAddress `codec:"nodeAddress"`
}
