// Package payclient is a thin HTTP client for the settlement API, used by
// payctl and by collaborating services.
package payclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"payablelane/pkg/domain"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// ActorContext travels in every mutating request body.
type ActorContext struct {
	ActorID        string `json:"actor_id"`
	Role           string `json:"role"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type BillResponse struct {
	RequestID string      `json:"request_id"`
	Bill      domain.Bill `json:"bill"`
}

type DeedResponse struct {
	RequestID string      `json:"request_id"`
	Deed      domain.Deed `json:"deed"`
	Signature string      `json:"signature,omitempty"`
}

type NoteResponse struct {
	RequestID string                `json:"request_id"`
	Note      domain.ReceivableNote `json:"note"`
}

type EventsResponse struct {
	Events []domain.EntityEvent `json:"events"`
}

type NotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type SubmitBillRequest struct {
	ActorContext ActorContext `json:"actor_context"`
	AmountMinor  int64        `json:"amount_minor"`
	Currency     string       `json:"currency"`
	InvoiceDate  string       `json:"invoice_date"`
	DueDate      string       `json:"due_date"`
	Reference    string       `json:"reference,omitempty"`
	Description  string       `json:"description,omitempty"`
}

func (c *Client) SubmitBill(ctx context.Context, in SubmitBillRequest) (*BillResponse, error) {
	return postJSON[BillResponse](c, ctx, "/pay/bills", in)
}

func (c *Client) GetBill(ctx context.Context, billID string) (*BillResponse, error) {
	return getJSON[BillResponse](c, ctx, "/pay/bills/"+url.PathEscape(billID))
}

func (c *Client) BillEvents(ctx context.Context, billID string) (*EventsResponse, error) {
	return getJSON[EventsResponse](c, ctx, "/pay/bills/"+url.PathEscape(billID)+"/events")
}

// BillAction drives the verb endpoints that carry nothing beyond the actor
// context plus optional extra fields.
func (c *Client) BillAction(ctx context.Context, billID, verb string, actor ActorContext, extra map[string]any) (*BillResponse, error) {
	body := map[string]any{"actor_context": actor}
	for k, v := range extra {
		body[k] = v
	}
	return postJSON[BillResponse](c, ctx, "/pay/bills/"+url.PathEscape(billID)+":"+verb, body)
}

type CreateDeedRequest struct {
	ActorContext       ActorContext           `json:"actor_context"`
	BillID             string                 `json:"bill_id"`
	AssignorID         string                 `json:"assignor_id"`
	ProcuringEntityID  string                 `json:"procuring_entity_id"`
	PrincipalMinor     int64                  `json:"principal_minor"`
	DiscountRate       float64                `json:"discount_rate"`
	PurchasePriceMinor int64                  `json:"purchase_price_minor"`
	Content            domain.DocumentContent `json:"content"`
}

func (c *Client) CreateDeed(ctx context.Context, in CreateDeedRequest) (*DeedResponse, error) {
	return postJSON[DeedResponse](c, ctx, "/pay/deeds", in)
}

func (c *Client) GetDeed(ctx context.Context, deedID string) (*DeedResponse, error) {
	return getJSON[DeedResponse](c, ctx, "/pay/deeds/"+url.PathEscape(deedID))
}

func (c *Client) SignDeed(ctx context.Context, deedID string, actor ActorContext, signerRole, walletAddress string) (*DeedResponse, error) {
	return postJSON[DeedResponse](c, ctx, "/pay/deeds/"+url.PathEscape(deedID)+":sign", map[string]any{
		"actor_context":  actor,
		"signer_role":    signerRole,
		"wallet_address": walletAddress,
	})
}

type GenerateNoteRequest struct {
	ActorContext ActorContext `json:"actor_context"`
	DeedID       string       `json:"deed_id"`
	Currency     string       `json:"currency"`
	IssueDate    string       `json:"issue_date"`
	MaturityDate string       `json:"maturity_date"`
}

func (c *Client) GenerateNote(ctx context.Context, in GenerateNoteRequest) (*NoteResponse, error) {
	return postJSON[NoteResponse](c, ctx, "/pay/notes", in)
}

func (c *Client) GetNote(ctx context.Context, noteID string) (*NoteResponse, error) {
	return getJSON[NoteResponse](c, ctx, "/pay/notes/"+url.PathEscape(noteID))
}

func (c *Client) NoteAction(ctx context.Context, noteID, verb string, actor ActorContext, extra map[string]any) (*NoteResponse, error) {
	body := map[string]any{"actor_context": actor}
	for k, v := range extra {
		body[k] = v
	}
	return postJSON[NoteResponse](c, ctx, "/pay/notes/"+url.PathEscape(noteID)+":"+verb, body)
}

func (c *Client) Notifications(ctx context.Context, recipient string) (*NotificationsResponse, error) {
	return getJSON[NotificationsResponse](c, ctx, "/pay/notifications/"+url.PathEscape(recipient))
}

func getJSON[T any](c *Client, ctx context.Context, path string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return doJSON[T](c, req)
}

func postJSON[T any](c *Client, ctx context.Context, path string, body any) (*T, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON[T](c, req)
}

func doJSON[T any](c *Client, req *http.Request) (*T, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("http %d: %v", resp.StatusCode, errBody)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
