package models

// AuditLog records administrative ledger operations (balance adjustments,
// integrity fixes, catch-ups, withdrawal status changes) for traceability.
type AuditLog struct {
	Base
	Actor      string `gorm:"not null" json:"actor"`
	Action     string `gorm:"not null;index" json:"action"`
	InvestorID string `gorm:"type:uuid;index" json:"investor_id"`
	Reference  string `json:"reference,omitempty"`
	Details    string `json:"details,omitempty"`
}
