package engine

import (
	"context"
	"strings"
	"time"

	"payablelane/pkg/domain"
	"payablelane/pkg/evidence"
)

type GenerateNoteInput struct {
	DeedID       string
	Currency     string
	IssueDate    time.Time
	MaturityDate time.Time
	Metadata     map[string]string
}

// GenerateNote drafts a receivable note against a fully executed deed. The
// face value is the deed principal; nothing about the amount is free-form.
func (s *Service) GenerateNote(ctx context.Context, actor Actor, in GenerateNoteInput) (domain.ReceivableNote, error) {
	if actor.Role != domain.RoleSPV {
		return domain.ReceivableNote{}, domain.ErrUnauthorized
	}
	if in.MaturityDate.IsZero() {
		return domain.ReceivableNote{}, domain.Invalid("maturity_date", "is required")
	}
	deed, err := s.deeds.Get(ctx, in.DeedID)
	if err != nil {
		return domain.ReceivableNote{}, err
	}
	if deed.Status != domain.DeedFullyExecuted {
		return domain.ReceivableNote{}, domain.ErrDeedNotExecuted
	}
	now := s.nowFn()
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		// inherit the bill's currency unless the caller overrides it
		if bill, err := s.bills.Get(ctx, deed.BillID); err == nil {
			currency = bill.Currency
		}
	}
	if !reCurrency.MatchString(currency) {
		return domain.ReceivableNote{}, domain.Invalid("currency", "must be a 3-letter code")
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = now
	}
	if !in.MaturityDate.After(in.IssueDate) {
		return domain.ReceivableNote{}, domain.Invalid("maturity_date", "must be after issue date")
	}
	note := domain.ReceivableNote{
		NoteID:         newNoteID(),
		NoteNumber:     evidence.NoteNumber(now),
		DeedID:         deed.DeedID,
		BillID:         deed.BillID,
		FaceValueMinor: deed.PrincipalMinor,
		Currency:       currency,
		IssueDate:      in.IssueDate,
		MaturityDate:   in.MaturityDate,
		Status:         domain.NoteDraft,
		Metadata:       in.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return domain.ReceivableNote{}, err
	}
	s.appendEvent(ctx, note.NoteID, "note.generated", actor.ActorID, map[string]any{"deed_id": deed.DeedID, "note_number": note.NoteNumber})
	if s.notifier != nil {
		s.notifier.ToIdentity(deed.AssignorID, "Receivable note issued", "Note "+note.NoteNumber+" has been drafted against deed "+deed.DeedID+".")
	}
	return note, nil
}

func (s *Service) GetNote(ctx context.Context, noteID string) (domain.ReceivableNote, error) {
	return s.notes.Get(ctx, noteID)
}

// MintNote records token evidence against a draft note exactly once.
func (s *Service) MintNote(ctx context.Context, actor Actor, noteID, walletAddress string) (domain.ReceivableNote, error) {
	if actor.Role != domain.RoleSPV {
		return domain.ReceivableNote{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(walletAddress) == "" {
		return domain.ReceivableNote{}, domain.Invalid("wallet_address", "is required")
	}
	unlock := s.locks.acquire(noteID)
	defer unlock()
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return domain.ReceivableNote{}, err
	}
	if note.Status != domain.NoteDraft {
		return domain.ReceivableNote{}, domain.ErrAlreadyMinted
	}
	note.Status = domain.NoteMinted
	note.TokenID = s.evidence.TokenID()
	note.TokenRegistry = s.evidence.Registry()
	note.MintTxHash = s.evidence.TxHash()
	note.MintWallet = strings.TrimSpace(walletAddress)
	note.MintedBy = actor.ActorID
	note.UpdatedAt = s.nowFn()
	if err := s.notes.Update(ctx, note); err != nil {
		return domain.ReceivableNote{}, err
	}
	note.Version++
	s.appendEvent(ctx, note.NoteID, "note.minted", actor.ActorID, map[string]any{"token_id": note.TokenID, "mint_tx_hash": note.MintTxHash})
	return note, nil
}

// ListNote moves a minted note onto the market.
func (s *Service) ListNote(ctx context.Context, actor Actor, noteID string) (domain.ReceivableNote, error) {
	return s.advanceNote(ctx, actor, noteID, domain.NoteListed, "note.listed", nil)
}

// MarkSold records an investor purchase of a listed note.
func (s *Service) MarkSold(ctx context.Context, actor Actor, noteID, investorID string) (domain.ReceivableNote, error) {
	if strings.TrimSpace(investorID) == "" {
		return domain.ReceivableNote{}, domain.Invalid("investor_id", "is required")
	}
	return s.advanceNote(ctx, actor, noteID, domain.NoteSold, "note.sold", func(n *domain.ReceivableNote) {
		if n.Metadata == nil {
			n.Metadata = map[string]string{}
		}
		n.Metadata["investor_id"] = investorID
	})
}

// RedeemNote settles a sold note at maturity.
func (s *Service) RedeemNote(ctx context.Context, actor Actor, noteID string) (domain.ReceivableNote, error) {
	return s.advanceNote(ctx, actor, noteID, domain.NoteRedeemed, "note.redeemed", nil)
}

func (s *Service) advanceNote(ctx context.Context, actor Actor, noteID string, to domain.NoteStatus, eventType string, mutate func(*domain.ReceivableNote)) (domain.ReceivableNote, error) {
	if actor.Role != domain.RoleSPV {
		return domain.ReceivableNote{}, domain.ErrUnauthorized
	}
	unlock := s.locks.acquire(noteID)
	defer unlock()
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return domain.ReceivableNote{}, err
	}
	if !domain.NoteAdvances(note.Status, to) {
		return domain.ReceivableNote{}, domain.ErrInvalidTransition
	}
	if mutate != nil {
		mutate(&note)
	}
	note.Status = to
	note.UpdatedAt = s.nowFn()
	if err := s.notes.Update(ctx, note); err != nil {
		return domain.ReceivableNote{}, err
	}
	note.Version++
	s.appendEvent(ctx, note.NoteID, eventType, actor.ActorID, map[string]any{"status": string(to)})
	return note, nil
}
