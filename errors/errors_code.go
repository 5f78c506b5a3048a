package errors

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeNotFound               Code = "NOT_FOUND"
	CodeIntegrity              Code = "INTEGRITY_ERROR"
	CodeNameResolution         Code = "NAME_RESOLUTION_FAILED"
	CodeInsufficientBalance    Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientBalanceFee Code = "INSUFFICIENT_BALANCE_FOR_FEE"
	CodeNetwork                Code = "NETWORK_ERROR"
	CodeSubmissionFailed       Code = "SUBMISSION_FAILED"
	CodeChainRejection         Code = "CHAIN_REJECTION"
	CodeCancelled              Code = "CANCELLED"
	CodeConfirmationPending    Code = "CONFIRMATION_PENDING"
	CodeUnsupported            Code = "UNSUPPORTED"
	CodeInternal               Code = "INTERNAL_ERROR"

	// chain adapter codes
	DailChain      Code = "DIAL_CHAIN_ERROR"
	GetchainIDErr  Code = "GET_CHAIN_ID_ERROR"
	PendingNonceAt Code = "PENDING_NONCE_AT_ERROR"
	SendTxErr      Code = "SEND_TX_ERROR"
)
