package domain

import "time"

type NoteStatus string

const (
	NoteDraft    NoteStatus = "draft"
	NoteMinted   NoteStatus = "minted"
	NoteListed   NoteStatus = "listed"
	NoteSold     NoteStatus = "sold"
	NoteRedeemed NoteStatus = "redeemed"
)

var noteOrder = map[NoteStatus]int{
	NoteDraft:    0,
	NoteMinted:   1,
	NoteListed:   2,
	NoteSold:     3,
	NoteRedeemed: 4,
}

// NoteAdvances reports whether moving from to next is a single forward step.
// Notes are never deleted and never move backward.
func NoteAdvances(from, to NoteStatus) bool {
	fi, ok := noteOrder[from]
	if !ok {
		return false
	}
	ti, ok := noteOrder[to]
	if !ok {
		return false
	}
	return ti == fi+1
}

type ReceivableNote struct {
	NoteID         string            `json:"note_id"`
	NoteNumber     string            `json:"note_number"`
	DeedID         string            `json:"deed_id"`
	BillID         string            `json:"bill_id"`
	FaceValueMinor int64             `json:"face_value_minor"`
	Currency       string            `json:"currency"`
	IssueDate      time.Time         `json:"issue_date"`
	MaturityDate   time.Time         `json:"maturity_date"`
	Status         NoteStatus        `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	TokenID       string `json:"token_id,omitempty"`
	TokenRegistry string `json:"token_registry,omitempty"`
	MintTxHash    string `json:"mint_tx_hash,omitempty"`
	MintWallet    string `json:"mint_wallet,omitempty"`
	MintedBy      string `json:"minted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}
