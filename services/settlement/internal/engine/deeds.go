package engine

import (
	"context"
	"strings"
	"time"

	"payablelane/pkg/canonhash"
	"payablelane/pkg/domain"
	"payablelane/pkg/signature"
)

type CreateDeedInput struct {
	BillID             string
	AssignorID         string
	ProcuringEntityID  string
	PrincipalMinor     int64
	DiscountRate       float64
	PurchasePriceMinor int64
	Content            domain.DocumentContent
}

// CreateDeed opens the tripartite signing sequence for a bill whose offer
// has been accepted. The content hash is computed once here, over the
// canonical snapshot, and never changes afterward: it is what the three
// signatures attest to.
func (s *Service) CreateDeed(ctx context.Context, actor Actor, in CreateDeedInput) (domain.Deed, error) {
	if actor.Role != domain.RoleSPV {
		return domain.Deed{}, domain.ErrUnauthorized
	}
	if in.PrincipalMinor <= 0 {
		return domain.Deed{}, domain.Invalid("principal", "must be positive")
	}
	if in.DiscountRate < 0 || in.DiscountRate > 100 {
		return domain.Deed{}, domain.Invalid("discount_rate", "must be within [0,100]")
	}
	if in.PurchasePriceMinor <= 0 {
		return domain.Deed{}, domain.Invalid("purchase_price", "must be positive")
	}
	if strings.TrimSpace(in.AssignorID) == "" || strings.TrimSpace(in.ProcuringEntityID) == "" {
		return domain.Deed{}, domain.Invalid("parties", "assignor and procuring entity are required")
	}
	// The precondition check and the create happen under the bill's lock so
	// a concurrent rejection cannot slip in between them. Bill operations
	// never take deed locks, so the ordering cannot deadlock.
	unlock := s.locks.acquire(in.BillID)
	defer unlock()
	bill, err := s.bills.Get(ctx, in.BillID)
	if err != nil {
		return domain.Deed{}, err
	}
	if bill.Status == domain.BillRejected || !bill.Status.AtOrAfter(domain.BillOfferAccepted) {
		return domain.Deed{}, domain.ErrInvalidTransition
	}
	now := s.nowFn()
	if in.Content.SchemaVersion == "" {
		in.Content.SchemaVersion = "doc-v1"
	}
	hash, _, err := canonhash.Sum(domain.DeedSnapshot{
		BillID:             in.BillID,
		AssignorID:         in.AssignorID,
		ProcuringEntityID:  in.ProcuringEntityID,
		PrincipalMinor:     in.PrincipalMinor,
		DiscountRate:       in.DiscountRate,
		PurchasePriceMinor: in.PurchasePriceMinor,
		CreatedAt:          now.Format(time.RFC3339Nano),
		Content:            in.Content,
	})
	if err != nil {
		return domain.Deed{}, err
	}
	deed := domain.Deed{
		DeedID:             newDeedID(),
		BillID:             in.BillID,
		AssignorID:         in.AssignorID,
		ProcuringEntityID:  in.ProcuringEntityID,
		ContentHash:        hash,
		Status:             domain.DeedPendingAssignor,
		PrincipalMinor:     in.PrincipalMinor,
		DiscountRate:       in.DiscountRate,
		PurchasePriceMinor: in.PurchasePriceMinor,
		CreatedAt:          now,
		UpdatedAt:          now,
		Version:            1,
	}
	if err := s.deeds.Create(ctx, deed); err != nil {
		return domain.Deed{}, err
	}
	s.appendEvent(ctx, deed.DeedID, "deed.created", actor.ActorID, map[string]any{"bill_id": deed.BillID, "content_hash": deed.ContentHash})
	if s.notifier != nil {
		s.notifier.ToIdentity(deed.AssignorID, "Deed ready to sign", "Deed "+deed.DeedID+" awaits your signature.")
	}
	return deed, nil
}

func (s *Service) GetDeed(ctx context.Context, deedID string) (domain.Deed, error) {
	return s.deeds.Get(ctx, deedID)
}

// signerRoleFor maps the acting platform role onto the deed party it is
// allowed to sign as: the supplier assigns, the agency procures, the
// treasury services.
func signerRoleFor(role domain.Role) (domain.SignerRole, bool) {
	switch role {
	case domain.RoleSupplier:
		return domain.SignerAssignor, true
	case domain.RoleAgency:
		return domain.SignerProcuringEntity, true
	case domain.RoleTreasury:
		return domain.SignerServicingAgent, true
	}
	return "", false
}

// SignDeed applies one strictly sequential signature. The status check and
// the slot write happen under the deed's lock, so two concurrent attempts
// for the same turn cannot both succeed.
func (s *Service) SignDeed(ctx context.Context, actor Actor, deedID string, signerRole domain.SignerRole, walletAddress string) (domain.Deed, string, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return domain.Deed{}, "", domain.Invalid("wallet_address", "is required")
	}
	pending, ok := domain.PendingStatusFor(signerRole)
	if !ok {
		return domain.Deed{}, "", domain.Invalid("signer_role", "unknown signer role")
	}
	if expected, ok := signerRoleFor(actor.Role); !ok || expected != signerRole {
		return domain.Deed{}, "", domain.ErrUnauthorized
	}

	unlock := s.locks.acquire(deedID)
	defer unlock()
	deed, err := s.deeds.Get(ctx, deedID)
	if err != nil {
		return domain.Deed{}, "", err
	}
	if deed.Status != pending {
		return domain.Deed{}, "", domain.ErrWrongSigner
	}
	slot := deed.Slot(signerRole)
	if *slot != nil {
		return domain.Deed{}, "", domain.ErrWrongSigner
	}
	now := s.nowFn()
	env := signature.Generate(deed.ContentHash, string(signerRole), walletAddress, now)
	*slot = &domain.SignatureSlot{
		SignerID:      actor.ActorID,
		Signature:     env.Signature,
		WalletAddress: walletAddress,
		SignedAt:      env.SignedAt,
	}
	deed.Status = domain.NextDeedStatus(signerRole)
	deed.UpdatedAt = now
	executed := deed.Status == domain.DeedFullyExecuted
	if executed {
		deed.TxHash = s.evidence.TxHash()
		deed.BlockNumber = s.evidence.BlockNumber()
		at := now
		deed.ExecutedAt = &at
	}
	if err := s.deeds.Update(ctx, deed); err != nil {
		return domain.Deed{}, "", err
	}
	deed.Version++
	s.appendEvent(ctx, deed.DeedID, "deed.signed", actor.ActorID, map[string]any{"signer_role": string(signerRole), "status": string(deed.Status)})

	if executed {
		s.appendEvent(ctx, deed.DeedID, "deed.fully_executed", actor.ActorID, map[string]any{"tx_hash": deed.TxHash, "block_number": deed.BlockNumber})
		s.certifyBillFromDeed(ctx, deed, actor)
		if s.notifier != nil {
			s.notifier.ToIdentity(deed.AssignorID, "Deed fully executed", "Deed "+deed.DeedID+" has been executed by all parties.")
			s.notifier.ToRole(domain.RoleSPV, "Deed executed", "Deed "+deed.DeedID+" is eligible for note issuance.")
		}
	} else if s.notifier != nil {
		switch deed.Status {
		case domain.DeedPendingProcuringEntity:
			s.notifier.ToIdentity(deed.ProcuringEntityID, "Deed awaiting signature", "Deed "+deed.DeedID+" awaits the procuring entity's signature.")
		case domain.DeedPendingServicingAgent:
			s.notifier.ToRole(domain.RoleTreasury, "Deed awaiting signature", "Deed "+deed.DeedID+" awaits the servicing agent's signature.")
		}
	}
	return deed, env.Signature, nil
}

// certifyBillFromDeed propagates full execution onto the bill. The bill is
// locked on its own; bill operations never lock deeds, so the ordering
// cannot deadlock.
func (s *Service) certifyBillFromDeed(ctx context.Context, deed domain.Deed, actor Actor) {
	unlock := s.locks.acquire(deed.BillID)
	defer unlock()
	bill, err := s.bills.Get(ctx, deed.BillID)
	if err != nil {
		s.logger.Warn("bill propagation failed", "bill_id", deed.BillID, "err", err)
		return
	}
	if bill.Status.Terminal() {
		return
	}
	bill.Status = domain.BillCertified
	bill.UpdatedAt = s.nowFn()
	if err := s.bills.Update(ctx, bill); err != nil {
		s.logger.Warn("bill propagation failed", "bill_id", deed.BillID, "err", err)
		return
	}
	s.appendEvent(ctx, bill.BillID, "bill.certified", actor.ActorID, map[string]any{"deed_id": deed.DeedID})
}
