package models

import "time"

// Purchase credit kinds that entitle the owner to a screening run.
const (
	CreditKindBackgroundCheck  = "backgroundCheck"
	CreditKindFullVerification = "fullVerification"
)

// ScreeningCreditKinds lists the kinds a screening attempt may redeem.
var ScreeningCreditKinds = []string{CreditKindBackgroundCheck, CreditKindFullVerification}

// PurchaseCredit is one paid entitlement to run a screening.
type PurchaseCredit struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	Kind            string    `json:"kind"`
	IsRedeemed      bool      `json:"is_redeemed"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
