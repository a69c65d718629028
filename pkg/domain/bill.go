package domain

import "time"

type Role string

const (
	RoleSupplier Role = "supplier"
	RoleSPV      Role = "spv"
	RoleAgency   Role = "agency"
	RoleTreasury Role = "treasury"
)

type BillStatus string

const (
	BillSubmitted         BillStatus = "submitted"
	BillUnderReview       BillStatus = "under_review"
	BillOfferMade         BillStatus = "offer_made"
	BillOfferAccepted     BillStatus = "offer_accepted"
	BillMDAReviewing      BillStatus = "mda_reviewing"
	BillMDAApproved       BillStatus = "mda_approved"
	BillTermsSet          BillStatus = "terms_set"
	BillAgreementSent     BillStatus = "agreement_sent"
	BillTreasuryReviewing BillStatus = "treasury_reviewing"
	BillCertified         BillStatus = "certified"
	BillRejected          BillStatus = "rejected"
)

// billOrder indexes the forward chain; terminal states are not part of it.
var billOrder = map[BillStatus]int{
	BillSubmitted:         0,
	BillUnderReview:       1,
	BillOfferMade:         2,
	BillOfferAccepted:     3,
	BillMDAReviewing:      4,
	BillMDAApproved:       5,
	BillTermsSet:          6,
	BillAgreementSent:     7,
	BillTreasuryReviewing: 8,
}

func (s BillStatus) Terminal() bool {
	return s == BillCertified || s == BillRejected
}

// AtOrAfter reports whether s has reached stage on the ordered chain.
// Certified counts as past every stage; rejected counts as past none.
func (s BillStatus) AtOrAfter(stage BillStatus) bool {
	if s == BillCertified {
		return true
	}
	si, ok := billOrder[s]
	if !ok {
		return false
	}
	ti, ok := billOrder[stage]
	if !ok {
		return false
	}
	return si >= ti
}

type OfferTerms struct {
	OfferAmountMinor int64     `json:"offer_amount_minor"`
	DiscountRate     float64   `json:"discount_rate"`
	OfferedBy        string    `json:"offered_by"`
	OfferedAt        time.Time `json:"offered_at"`
	ValidUntil       time.Time `json:"valid_until,omitempty"`
}

type Installment struct {
	Quarter     string `json:"quarter"`
	AmountMinor int64  `json:"amount_minor"`
}

type ApprovalTerms struct {
	PaymentQuarters int           `json:"payment_quarters"`
	StartQuarter    string        `json:"start_quarter"`
	Installments    []Installment `json:"installments"`
	ApprovedBy      string        `json:"approved_by"`
	ApprovedAt      time.Time     `json:"approved_at"`
	Notes           string        `json:"notes,omitempty"`
}

type CertificationTerms struct {
	CertificateNumber string    `json:"certificate_number"`
	CertifiedBy       string    `json:"certified_by"`
	CertifiedAt       time.Time `json:"certified_at"`
}

type Bill struct {
	BillID        string     `json:"bill_id"`
	SupplierID    string     `json:"supplier_id"`
	AmountMinor   int64      `json:"amount_minor"`
	Currency      string     `json:"currency"`
	InvoiceDate   time.Time  `json:"invoice_date"`
	DueDate       time.Time  `json:"due_date"`
	WorkStartDate *time.Time `json:"work_start_date,omitempty"`
	WorkEndDate   *time.Time `json:"work_end_date,omitempty"`
	Reference     string     `json:"reference,omitempty"`
	Description   string     `json:"description,omitempty"`
	Status        BillStatus `json:"status"`

	Offer         *OfferTerms         `json:"offer,omitempty"`
	Approval      *ApprovalTerms      `json:"approval,omitempty"`
	Certification *CertificationTerms `json:"certification,omitempty"`
	RejectReason  string              `json:"reject_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}
