package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ExemptionCertificate is a customer-provided exemption applied to a
// purchase. Persisted certificates have a durable ID; single-purchase
// certificates are ephemeral and identified by a content hash.
type ExemptionCertificate struct {
	ID             string `json:"id,omitempty"`
	SinglePurchase bool   `json:"single_purchase,omitempty"`

	PurchaserName   string   `json:"purchaser_name,omitempty"`
	BusinessType    string   `json:"business_type,omitempty"`
	ExemptionReason string   `json:"exemption_reason,omitempty"`
	States          []string `json:"states,omitempty"`
}

// Key returns a stable identifier for the certificate: the durable ID
// when one exists, otherwise a hash of the certificate content.
func (c *ExemptionCertificate) Key() string {
	if c == nil {
		return ""
	}
	if c.ID != "" {
		return c.ID
	}
	h := sha256.Sum256([]byte(strings.Join(append([]string{
		c.PurchaserName,
		c.BusinessType,
		c.ExemptionReason,
	}, c.States...), "\x1f")))
	return hex.EncodeToString(h[:])
}
