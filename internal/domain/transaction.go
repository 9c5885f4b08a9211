package domain

// Transaction type classifications. Transfer and unknown are derived
// from transaction contents; the remaining labels come from enriched
// transaction providers and are treated as high severity.
const (
	TxTypeTransfer        = "transfer"
	TxTypeUnknown         = "unknown"
	TxTypeRugPull         = "rugpull"
	TxTypeLargeWithdrawal = "largeWithdrawal"
)

// TokenTransaction is one observed transaction for a monitored token.
type TokenTransaction struct {
	Signature   string
	Timestamp   int64 // unix seconds
	Type        string
	Amount      string // token units, or native units for SOL transfers
	FromAddress string
	ToAddress   string
	Description string
	Source      string
}

// ObservedTransaction couples a transaction with the monitored token it
// was observed on, the shape persisted by the event store.
type ObservedTransaction struct {
	TokenAddress string
	TokenTransaction
}
