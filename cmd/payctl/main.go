package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"payablelane/pkg/payclient"
)

const usage = `usage:
  payctl bill submit --api <base> --actor <id> --amount <minor> --currency <ccy> --invoice-date <rfc3339> --due-date <rfc3339> [--reference <ref>]
  payctl bill get --api <base> --id <bill_id>
  payctl bill events --api <base> --id <bill_id>
  payctl bill action --api <base> --id <bill_id> --verb <verb> --actor <id> --role <role> [--field k=v]...
  payctl deed create --api <base> --actor <id> --bill <bill_id> --assignor <id> --procuring-entity <id> --principal <minor> --rate <pct> --purchase <minor>
  payctl deed sign --api <base> --id <deed_id> --actor <id> --role <role> --signer-role <signer_role> --wallet <addr>
  payctl note generate --api <base> --actor <id> --deed <deed_id> --currency <ccy> --issue-date <rfc3339> --maturity-date <rfc3339>
  payctl note action --api <base> --id <note_id> --verb <verb> --actor <id> [--field k=v]...
  payctl notifications --api <base> --recipient <id>`

type fieldFlags map[string]any

func (f fieldFlags) String() string { return "" }
func (f fieldFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("field must be key=value")
	}
	var decoded any
	if err := json.Unmarshal([]byte(val), &decoded); err != nil {
		decoded = val
	}
	f[k] = decoded
	return nil
}

func main() {
	if len(os.Args) < 3 {
		fail(usage)
	}
	ctx := context.Background()
	switch os.Args[1] + " " + os.Args[2] {
	case "bill submit":
		runBillSubmit(ctx, os.Args[3:])
	case "bill get":
		runBillGet(ctx, os.Args[3:])
	case "bill events":
		runBillEvents(ctx, os.Args[3:])
	case "bill action":
		runBillAction(ctx, os.Args[3:])
	case "deed create":
		runDeedCreate(ctx, os.Args[3:])
	case "deed sign":
		runDeedSign(ctx, os.Args[3:])
	case "note generate":
		runNoteGenerate(ctx, os.Args[3:])
	case "note action":
		runNoteAction(ctx, os.Args[3:])
	default:
		if os.Args[1] == "notifications" {
			runNotifications(ctx, os.Args[2:])
			return
		}
		fail(usage)
	}
}

func runBillSubmit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("bill submit", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	actor := fs.String("actor", "", "acting supplier id")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	amount := fs.Int64("amount", 0, "bill amount in minor units")
	currency := fs.String("currency", "", "3-letter currency code")
	invoiceDate := fs.String("invoice-date", "", "invoice date, RFC3339")
	dueDate := fs.String("due-date", "", "due date, RFC3339")
	reference := fs.String("reference", "", "invoice reference")
	description := fs.String("description", "", "description")
	_ = fs.Parse(args)

	c := payclient.New(*api)
	resp, err := c.SubmitBill(ctx, payclient.SubmitBillRequest{
		ActorContext: payclient.ActorContext{ActorID: *actor, Role: "supplier", IdempotencyKey: *idemKey},
		AmountMinor:  *amount,
		Currency:     *currency,
		InvoiceDate:  *invoiceDate,
		DueDate:      *dueDate,
		Reference:    *reference,
		Description:  *description,
	})
	emit(resp, err)
}

func runBillGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("bill get", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	id := fs.String("id", "", "bill id")
	_ = fs.Parse(args)
	resp, err := payclient.New(*api).GetBill(ctx, *id)
	emit(resp, err)
}

func runBillEvents(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("bill events", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	id := fs.String("id", "", "bill id")
	_ = fs.Parse(args)
	resp, err := payclient.New(*api).BillEvents(ctx, *id)
	emit(resp, err)
}

func runBillAction(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("bill action", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	id := fs.String("id", "", "bill id")
	verb := fs.String("verb", "", "lifecycle verb, e.g. startReview, makeOffer, approve, certify, reject")
	actor := fs.String("actor", "", "acting identity id")
	role := fs.String("role", "", "acting role")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	extra := fieldFlags{}
	fs.Var(extra, "field", "extra body field key=value (repeatable)")
	_ = fs.Parse(args)

	resp, err := payclient.New(*api).BillAction(ctx, *id, *verb,
		payclient.ActorContext{ActorID: *actor, Role: *role, IdempotencyKey: *idemKey}, extra)
	emit(resp, err)
}

func runDeedCreate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("deed create", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	actor := fs.String("actor", "", "acting spv id")
	bill := fs.String("bill", "", "bill id")
	assignor := fs.String("assignor", "", "assignor identity id")
	procuring := fs.String("procuring-entity", "", "procuring entity identity id")
	principal := fs.Int64("principal", 0, "principal in minor units")
	rate := fs.Float64("rate", 0, "discount rate percent")
	purchase := fs.Int64("purchase", 0, "purchase price in minor units")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	_ = fs.Parse(args)

	resp, err := payclient.New(*api).CreateDeed(ctx, payclient.CreateDeedRequest{
		ActorContext:       payclient.ActorContext{ActorID: *actor, Role: "spv", IdempotencyKey: *idemKey},
		BillID:             *bill,
		AssignorID:         *assignor,
		ProcuringEntityID:  *procuring,
		PrincipalMinor:     *principal,
		DiscountRate:       *rate,
		PurchasePriceMinor: *purchase,
	})
	emit(resp, err)
}

func runDeedSign(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("deed sign", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	id := fs.String("id", "", "deed id")
	actor := fs.String("actor", "", "acting identity id")
	role := fs.String("role", "", "acting role")
	signerRole := fs.String("signer-role", "", "assignor, procuring_entity or servicing_agent")
	wallet := fs.String("wallet", "", "wallet address")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	_ = fs.Parse(args)

	resp, err := payclient.New(*api).SignDeed(ctx, *id,
		payclient.ActorContext{ActorID: *actor, Role: *role, IdempotencyKey: *idemKey}, *signerRole, *wallet)
	emit(resp, err)
}

func runNoteGenerate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("note generate", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	actor := fs.String("actor", "", "acting spv id")
	deed := fs.String("deed", "", "deed id")
	currency := fs.String("currency", "", "3-letter currency code")
	issueDate := fs.String("issue-date", "", "issue date, RFC3339")
	maturityDate := fs.String("maturity-date", "", "maturity date, RFC3339")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	_ = fs.Parse(args)

	resp, err := payclient.New(*api).GenerateNote(ctx, payclient.GenerateNoteRequest{
		ActorContext: payclient.ActorContext{ActorID: *actor, Role: "spv", IdempotencyKey: *idemKey},
		DeedID:       *deed,
		Currency:     *currency,
		IssueDate:    *issueDate,
		MaturityDate: *maturityDate,
	})
	emit(resp, err)
}

func runNoteAction(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("note action", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	id := fs.String("id", "", "note id")
	verb := fs.String("verb", "", "mint, list, markSold or redeem")
	actor := fs.String("actor", "", "acting spv id")
	idemKey := fs.String("idempotency-key", "", "idempotency key")
	extra := fieldFlags{}
	fs.Var(extra, "field", "extra body field key=value (repeatable)")
	_ = fs.Parse(args)

	resp, err := payclient.New(*api).NoteAction(ctx, *id, *verb,
		payclient.ActorContext{ActorID: *actor, Role: "spv", IdempotencyKey: *idemKey}, extra)
	emit(resp, err)
}

func runNotifications(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	api := fs.String("api", "http://localhost:8084", "settlement API base URL")
	recipient := fs.String("recipient", "", "recipient identity id")
	_ = fs.Parse(args)
	resp, err := payclient.New(*api).Notifications(ctx, *recipient)
	emit(resp, err)
}

func emit(v any, err error) {
	if err != nil {
		fail(err.Error())
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
