// Package gateway provides the payout gateway client used to move withdrawn
// funds to an investor's bank account. The production implementation talks to
// a Paystack-compatible HTTP API.
package gateway

import "context"

// Gateway is the payout capability consumed by the ledger service.
type Gateway interface {
	// ResolveBankCode maps a human-entered bank name to a bank code.
	// Matching is exact first, then substring; no further fuzz.
	ResolveBankCode(ctx context.Context, bankName string) (string, error)
	// CreateRecipient registers a transfer recipient and returns its code.
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	// InitiateTransfer starts a transfer of amountMinor (minor currency
	// units) to the recipient and returns the gateway's transfer reference.
	InitiateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (string, error)
}
