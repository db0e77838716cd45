package wire

import "fmt"

// Status is the numeric code a node puts in every response header. The same
// enumeration is used for transaction receipts.
type Status uint32

const (
	StatusOK                            Status = 0
	StatusInvalidTransaction            Status = 1
	StatusPayerAccountNotFound          Status = 2
	StatusInvalidNodeAccount            Status = 3
	StatusTransactionExpired            Status = 4
	StatusInvalidTransactionStart       Status = 5
	StatusInvalidTransactionDuration    Status = 6
	StatusInvalidSignature              Status = 7
	StatusMemoTooLong                   Status = 8
	StatusInsufficientTxFee             Status = 9
	StatusInsufficientPayerBalance      Status = 10
	StatusDuplicateTransaction          Status = 11
	StatusBusy                          Status = 12
	StatusNotSupported                  Status = 13
	StatusInvalidFileID                 Status = 14
	StatusInvalidAccountID              Status = 15
	StatusInvalidTopicID                Status = 16
	StatusInvalidTransactionID          Status = 17
	StatusReceiptNotFound               Status = 18
	StatusRecordNotFound                Status = 19
	StatusUnknown                       Status = 21
	StatusSuccess                       Status = 22
	StatusFailInvalid                   Status = 23
	StatusFailFee                       Status = 24
	StatusFailBalance                   Status = 25
	StatusBadEncoding                   Status = 27
	StatusInsufficientAccountBalance    Status = 28
	StatusInvalidQueryHeader            Status = 41
	StatusInvalidFeeSubmitted           Status = 42
	StatusInvalidPayerSignature         Status = 43
	StatusInvalidAccountAmounts         Status = 48
	StatusEmptyTransactionBody          Status = 49
	StatusInvalidTransactionBody        Status = 50
	StatusInvalidChunkNumber            Status = 51
	StatusInvalidChunkTransactionID     Status = 52
	StatusPlatformTransactionNotCreated Status = 60
	StatusPlatformNotActive             Status = 61
	StatusMaxFileSizeExceeded           Status = 62
)

var statusNames = map[Status]string{
	StatusOK:                            "OK",
	StatusInvalidTransaction:            "INVALID_TRANSACTION",
	StatusPayerAccountNotFound:          "PAYER_ACCOUNT_NOT_FOUND",
	StatusInvalidNodeAccount:            "INVALID_NODE_ACCOUNT",
	StatusTransactionExpired:            "TRANSACTION_EXPIRED",
	StatusInvalidTransactionStart:       "INVALID_TRANSACTION_START",
	StatusInvalidTransactionDuration:    "INVALID_TRANSACTION_DURATION",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusMemoTooLong:                   "MEMO_TOO_LONG",
	StatusInsufficientTxFee:             "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:      "INSUFFICIENT_PAYER_BALANCE",
	StatusDuplicateTransaction:          "DUPLICATE_TRANSACTION",
	StatusBusy:                          "BUSY",
	StatusNotSupported:                  "NOT_SUPPORTED",
	StatusInvalidFileID:                 "INVALID_FILE_ID",
	StatusInvalidAccountID:              "INVALID_ACCOUNT_ID",
	StatusInvalidTopicID:                "INVALID_TOPIC_ID",
	StatusInvalidTransactionID:          "INVALID_TRANSACTION_ID",
	StatusReceiptNotFound:               "RECEIPT_NOT_FOUND",
	StatusRecordNotFound:                "RECORD_NOT_FOUND",
	StatusUnknown:                       "UNKNOWN",
	StatusSuccess:                       "SUCCESS",
	StatusFailInvalid:                   "FAIL_INVALID",
	StatusFailFee:                       "FAIL_FEE",
	StatusFailBalance:                   "FAIL_BALANCE",
	StatusBadEncoding:                   "BAD_ENCODING",
	StatusInsufficientAccountBalance:    "INSUFFICIENT_ACCOUNT_BALANCE",
	StatusInvalidQueryHeader:            "INVALID_QUERY_HEADER",
	StatusInvalidFeeSubmitted:           "INVALID_FEE_SUBMITTED",
	StatusInvalidPayerSignature:         "INVALID_PAYER_SIGNATURE",
	StatusInvalidAccountAmounts:         "INVALID_ACCOUNT_AMOUNTS",
	StatusEmptyTransactionBody:          "EMPTY_TRANSACTION_BODY",
	StatusInvalidTransactionBody:        "INVALID_TRANSACTION_BODY",
	StatusInvalidChunkNumber:            "INVALID_CHUNK_NUMBER",
	StatusInvalidChunkTransactionID:     "INVALID_CHUNK_TRANSACTION_ID",
	StatusPlatformTransactionNotCreated: "PLATFORM_TRANSACTION_NOT_CREATED",
	StatusPlatformNotActive:             "PLATFORM_NOT_ACTIVE",
	StatusMaxFileSizeExceeded:           "MAX_FILE_SIZE_EXCEEDED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", uint32(s))
}

// Busy reports whether the status means the network could not take the
// request right now and another node may.
func (s Status) Busy() bool {
	switch s {
	case StatusBusy, StatusPlatformTransactionNotCreated, StatusPlatformNotActive:
		return true
	}
	return false
}

// ResponseType selects between the answer to a query and its price.
type ResponseType uint8

const (
	AnswerOnly ResponseType = iota
	CostAnswer
)

func (t ResponseType) String() string {
	switch t {
	case AnswerOnly:
		return "ANSWER_ONLY"
	case CostAnswer:
		return "COST_ANSWER"
	default:
		return "UNKNOWN"
	}
}
