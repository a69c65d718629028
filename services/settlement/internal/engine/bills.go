package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"payablelane/pkg/domain"
)

var reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)

type SubmitBillInput struct {
	AmountMinor   int64
	Currency      string
	InvoiceDate   time.Time
	DueDate       time.Time
	WorkStartDate *time.Time
	WorkEndDate   *time.Time
	Reference     string
	Description   string
}

// Submit creates a new bill owned by the acting supplier.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitBillInput) (domain.Bill, error) {
	if actor.Role != domain.RoleSupplier {
		return domain.Bill{}, domain.ErrUnauthorized
	}
	if in.AmountMinor <= 0 {
		return domain.Bill{}, domain.Invalid("amount", "must be positive")
	}
	if !reCurrency.MatchString(in.Currency) {
		return domain.Bill{}, domain.Invalid("currency", "must be a 3-letter code")
	}
	if in.InvoiceDate.IsZero() || in.DueDate.IsZero() {
		return domain.Bill{}, domain.Invalid("dates", "invoice and due dates are required")
	}
	if in.DueDate.Before(in.InvoiceDate) {
		return domain.Bill{}, domain.Invalid("due_date", "must not precede invoice date")
	}
	if in.WorkStartDate != nil && in.WorkEndDate != nil && in.WorkEndDate.Before(*in.WorkStartDate) {
		return domain.Bill{}, domain.Invalid("work_window", "end must not precede start")
	}
	now := s.nowFn()
	bill := domain.Bill{
		BillID:        newBillID(),
		SupplierID:    actor.ActorID,
		AmountMinor:   in.AmountMinor,
		Currency:      in.Currency,
		InvoiceDate:   in.InvoiceDate,
		DueDate:       in.DueDate,
		WorkStartDate: in.WorkStartDate,
		WorkEndDate:   in.WorkEndDate,
		Reference:     strings.TrimSpace(in.Reference),
		Description:   strings.TrimSpace(in.Description),
		Status:        domain.BillSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if err := s.bills.Create(ctx, bill); err != nil {
		return domain.Bill{}, err
	}
	s.appendEvent(ctx, bill.BillID, "bill.submitted", actor.ActorID, map[string]any{"amount_minor": bill.AmountMinor, "currency": bill.Currency})
	s.notifyNext(bill)
	return bill, nil
}

func (s *Service) GetBill(ctx context.Context, billID string) (domain.Bill, error) {
	return s.bills.Get(ctx, billID)
}

func (s *Service) StartReview(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleSPV,
		[]domain.BillStatus{domain.BillSubmitted}, domain.BillUnderReview,
		"bill.review_started", nil, nil)
}

type OfferInput struct {
	OfferAmountMinor int64
	DiscountRate     float64
	ValidUntil       time.Time
}

func (s *Service) MakeOffer(ctx context.Context, actor Actor, billID string, in OfferInput) (domain.Bill, error) {
	if in.OfferAmountMinor <= 0 {
		return domain.Bill{}, domain.Invalid("offer_amount", "must be positive")
	}
	if in.DiscountRate < 0 || in.DiscountRate > 100 {
		return domain.Bill{}, domain.Invalid("discount_rate", "must be within [0,100]")
	}
	return s.advanceBill(ctx, actor, billID, domain.RoleSPV,
		[]domain.BillStatus{domain.BillSubmitted, domain.BillUnderReview}, domain.BillOfferMade,
		"bill.offer_made", map[string]any{"offer_amount_minor": in.OfferAmountMinor, "discount_rate": in.DiscountRate},
		func(b *domain.Bill) {
			b.Offer = &domain.OfferTerms{
				OfferAmountMinor: in.OfferAmountMinor,
				DiscountRate:     in.DiscountRate,
				OfferedBy:        actor.ActorID,
				OfferedAt:        s.nowFn(),
				ValidUntil:       in.ValidUntil,
			}
		})
}

func (s *Service) AcceptOffer(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleSupplier,
		[]domain.BillStatus{domain.BillOfferMade}, domain.BillOfferAccepted,
		"bill.offer_accepted", nil, nil)
}

func (s *Service) BeginAgencyReview(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleAgency,
		[]domain.BillStatus{domain.BillOfferAccepted}, domain.BillMDAReviewing,
		"bill.mda_review_started", nil, nil)
}

type ApproveInput struct {
	PaymentQuarters int
	StartQuarter    string
	Notes           string
}

// Approve records the agency's approval and computes the installment
// schedule: equal parts of the bill amount over consecutive quarters, the
// last part absorbing any rounding remainder.
func (s *Service) Approve(ctx context.Context, actor Actor, billID string, in ApproveInput) (domain.Bill, error) {
	if in.PaymentQuarters <= 0 {
		return domain.Bill{}, domain.Invalid("payment_quarters", "must be positive")
	}
	start, err := domain.ParseQuarter(in.StartQuarter)
	if err != nil {
		return domain.Bill{}, err
	}
	return s.advanceBill(ctx, actor, billID, domain.RoleAgency,
		[]domain.BillStatus{domain.BillMDAReviewing}, domain.BillMDAApproved,
		"bill.approved", map[string]any{"payment_quarters": in.PaymentQuarters, "start_quarter": start.String()},
		func(b *domain.Bill) {
			b.Approval = &domain.ApprovalTerms{
				PaymentQuarters: in.PaymentQuarters,
				StartQuarter:    start.String(),
				Installments:    domain.BuildInstallments(b.AmountMinor, in.PaymentQuarters, start),
				ApprovedBy:      actor.ActorID,
				ApprovedAt:      s.nowFn(),
				Notes:           strings.TrimSpace(in.Notes),
			}
		})
}

func (s *Service) FinalizeTerms(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleAgency,
		[]domain.BillStatus{domain.BillMDAApproved}, domain.BillTermsSet,
		"bill.terms_set", nil, nil)
}

func (s *Service) SendAgreement(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleSPV,
		[]domain.BillStatus{domain.BillTermsSet}, domain.BillAgreementSent,
		"bill.agreement_sent", nil, nil)
}

func (s *Service) BeginTreasuryReview(ctx context.Context, actor Actor, billID string) (domain.Bill, error) {
	return s.advanceBill(ctx, actor, billID, domain.RoleTreasury,
		[]domain.BillStatus{domain.BillAgreementSent}, domain.BillTreasuryReviewing,
		"bill.treasury_review_started", nil, nil)
}

func (s *Service) Certify(ctx context.Context, actor Actor, billID, certificateNumber string) (domain.Bill, error) {
	certificateNumber = strings.TrimSpace(certificateNumber)
	if certificateNumber == "" {
		return domain.Bill{}, domain.Invalid("certificate_number", "is required")
	}
	return s.advanceBill(ctx, actor, billID, domain.RoleTreasury,
		[]domain.BillStatus{domain.BillTreasuryReviewing}, domain.BillCertified,
		"bill.certified", map[string]any{"certificate_number": certificateNumber},
		func(b *domain.Bill) {
			b.Certification = &domain.CertificationTerms{
				CertificateNumber: certificateNumber,
				CertifiedBy:       actor.ActorID,
				CertifiedAt:       s.nowFn(),
			}
		})
}

// Reject moves any non-terminal bill to rejected; the transition is
// absorbing. Any of the reviewing parties (or the supplier, withdrawing)
// may reject.
func (s *Service) Reject(ctx context.Context, actor Actor, billID, reason string) (domain.Bill, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Bill{}, domain.Invalid("reason", "is required")
	}
	switch actor.Role {
	case domain.RoleSupplier, domain.RoleSPV, domain.RoleAgency, domain.RoleTreasury:
	default:
		return domain.Bill{}, domain.ErrUnauthorized
	}
	unlock := s.locks.acquire(billID)
	defer unlock()
	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if bill.Status.Terminal() {
		return domain.Bill{}, domain.ErrInvalidTransition
	}
	bill.Status = domain.BillRejected
	bill.RejectReason = reason
	bill.UpdatedAt = s.nowFn()
	if err := s.bills.Update(ctx, bill); err != nil {
		return domain.Bill{}, err
	}
	bill.Version++
	s.appendEvent(ctx, bill.BillID, "bill.rejected", actor.ActorID, map[string]any{"reason": reason})
	s.notifyNext(bill)
	return bill, nil
}

// advanceBill is the shared guarded transition: role table check, status
// precondition, mutation and versioned write all happen under the bill's
// lock; the notification is enqueued only after the write succeeded.
func (s *Service) advanceBill(ctx context.Context, actor Actor, billID string, requiredRole domain.Role, from []domain.BillStatus, to domain.BillStatus, eventType string, eventPayload map[string]any, mutate func(*domain.Bill)) (domain.Bill, error) {
	if actor.Role != requiredRole {
		return domain.Bill{}, domain.ErrUnauthorized
	}
	unlock := s.locks.acquire(billID)
	defer unlock()
	bill, err := s.bills.Get(ctx, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	ok := false
	for _, f := range from {
		if bill.Status == f {
			ok = true
			break
		}
	}
	if !ok {
		return domain.Bill{}, domain.ErrInvalidTransition
	}
	if mutate != nil {
		mutate(&bill)
	}
	bill.Status = to
	bill.UpdatedAt = s.nowFn()
	if err := s.bills.Update(ctx, bill); err != nil {
		return domain.Bill{}, err
	}
	bill.Version++
	s.appendEvent(ctx, bill.BillID, eventType, actor.ActorID, eventPayload)
	s.notifyNext(bill)
	return bill, nil
}

// notifyNext addresses exactly one notification to the party responsible
// for the next step of the lifecycle.
func (s *Service) notifyNext(bill domain.Bill) {
	if s.notifier == nil {
		return
	}
	ref := bill.Reference
	if ref == "" {
		ref = bill.BillID
	}
	switch bill.Status {
	case domain.BillSubmitted, domain.BillUnderReview:
		s.notifier.ToRole(domain.RoleSPV, "Bill awaiting offer", "Bill "+ref+" is awaiting an offer.")
	case domain.BillOfferMade:
		s.notifier.ToIdentity(bill.SupplierID, "Offer received", "An offer was made on bill "+ref+".")
	case domain.BillOfferAccepted:
		s.notifier.ToRole(domain.RoleAgency, "Offer accepted", "Bill "+ref+" is ready for agency review.")
	case domain.BillMDAReviewing, domain.BillMDAApproved:
		s.notifier.ToRole(domain.RoleAgency, "Agency action required", "Bill "+ref+" awaits payment terms.")
	case domain.BillTermsSet:
		s.notifier.ToRole(domain.RoleSPV, "Terms set", "Bill "+ref+" is ready for the agreement to be sent.")
	case domain.BillAgreementSent:
		s.notifier.ToRole(domain.RoleTreasury, "Agreement sent", "Bill "+ref+" awaits treasury review.")
	case domain.BillTreasuryReviewing:
		s.notifier.ToRole(domain.RoleTreasury, "Certification pending", "Bill "+ref+" awaits certification.")
	case domain.BillCertified:
		s.notifier.ToIdentity(bill.SupplierID, "Bill certified", "Bill "+ref+" has been certified.")
	case domain.BillRejected:
		s.notifier.ToIdentity(bill.SupplierID, "Bill rejected", "Bill "+ref+" was rejected: "+bill.RejectReason)
	}
}
