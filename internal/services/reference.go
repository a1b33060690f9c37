package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Reference prefixes for human-facing transaction ids.
const (
	refPrefixInitial    = "INIT"
	refPrefixInterest   = "INT"
	refPrefixWithdrawal = "WITHDRAW"
	refPrefixEnd        = "END"
	refPrefixRenew      = "RENEW"
	refPrefixRedeem     = "REDEEM"
	refPrefixAdjust     = "ADJ"
	refPrefixTransfer   = "TRF"
)

// newReference builds a transaction reference like INT-3F2A90B1C4D5:
// a type prefix plus 12 uppercase hex characters.
func newReference(prefix string) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, hex[:12])
}
