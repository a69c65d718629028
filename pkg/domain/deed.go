package domain

import "time"

type SignerRole string

const (
	SignerAssignor        SignerRole = "assignor"
	SignerProcuringEntity SignerRole = "procuring_entity"
	SignerServicingAgent  SignerRole = "servicing_agent"
)

type DeedStatus string

const (
	DeedPendingAssignor        DeedStatus = "pending_assignor"
	DeedPendingProcuringEntity DeedStatus = "pending_procuring_entity"
	DeedPendingServicingAgent  DeedStatus = "pending_servicing_agent"
	DeedFullyExecuted          DeedStatus = "fully_executed"
	DeedRejected               DeedStatus = "rejected"
)

// PendingStatusFor maps a signer role to the deed status in which that
// role holds the pen.
func PendingStatusFor(role SignerRole) (DeedStatus, bool) {
	switch role {
	case SignerAssignor:
		return DeedPendingAssignor, true
	case SignerProcuringEntity:
		return DeedPendingProcuringEntity, true
	case SignerServicingAgent:
		return DeedPendingServicingAgent, true
	}
	return "", false
}

// NextDeedStatus returns the status reached once role has signed.
func NextDeedStatus(role SignerRole) DeedStatus {
	switch role {
	case SignerAssignor:
		return DeedPendingProcuringEntity
	case SignerProcuringEntity:
		return DeedPendingServicingAgent
	default:
		return DeedFullyExecuted
	}
}

// DocumentContent is the closed, versioned schema for the free-form deed
// document. Keeping it a tagged structure (not an open map) makes the
// content hash deterministic and forward-compatible.
type DocumentContent struct {
	SchemaVersion string `json:"schema_version"`
	Title         string `json:"title,omitempty"`
	Body          string `json:"body,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

type SignatureSlot struct {
	SignerID      string    `json:"signer_id"`
	Signature     string    `json:"signature"`
	WalletAddress string    `json:"wallet_address"`
	SignedAt      time.Time `json:"signed_at"`
}

type Deed struct {
	DeedID            string     `json:"deed_id"`
	BillID            string     `json:"bill_id"`
	AssignorID        string     `json:"assignor_id"`
	ProcuringEntityID string     `json:"procuring_entity_id"`
	ContentHash       string     `json:"content_hash"`
	Status            DeedStatus `json:"status"`

	PrincipalMinor     int64   `json:"principal_minor"`
	DiscountRate       float64 `json:"discount_rate"`
	PurchasePriceMinor int64   `json:"purchase_price_minor"`

	AssignorSig        *SignatureSlot `json:"assignor_sig,omitempty"`
	ProcuringEntitySig *SignatureSlot `json:"procuring_entity_sig,omitempty"`
	ServicingAgentSig  *SignatureSlot `json:"servicing_agent_sig,omitempty"`

	TxHash      string     `json:"tx_hash,omitempty"`
	BlockNumber int64      `json:"block_number,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Slot returns the signature slot for role, or nil if role is unknown.
func (d *Deed) Slot(role SignerRole) **SignatureSlot {
	switch role {
	case SignerAssignor:
		return &d.AssignorSig
	case SignerProcuringEntity:
		return &d.ProcuringEntitySig
	case SignerServicingAgent:
		return &d.ServicingAgentSig
	}
	return nil
}

// DeedSnapshot is the canonical set of fields the content hash attests to.
// The hash is computed once at creation and never changes afterward.
type DeedSnapshot struct {
	BillID             string          `json:"bill_id"`
	AssignorID         string          `json:"assignor_id"`
	ProcuringEntityID  string          `json:"procuring_entity_id"`
	PrincipalMinor     int64           `json:"principal_minor"`
	DiscountRate       float64         `json:"discount_rate"`
	PurchasePriceMinor int64           `json:"purchase_price_minor"`
	CreatedAt          string          `json:"created_at"`
	Content            DocumentContent `json:"content"`
}
