package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"payablelane/pkg/db"
	"payablelane/pkg/domain"
	"payablelane/pkg/httpx"
	"payablelane/services/settlement/internal/config"
	"payablelane/services/settlement/internal/engine"
	"payablelane/services/settlement/internal/idempotency"
	"payablelane/services/settlement/internal/memstore"
	"payablelane/services/settlement/internal/metrics"
	"payablelane/services/settlement/internal/notify"
	"payablelane/services/settlement/internal/store"

	"github.com/go-chi/chi/v5"
)

type actorContext struct {
	ActorID        string `json:"actor_id"`
	Role           string `json:"role"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (a actorContext) engineActor() engine.Actor {
	return engine.Actor{ActorID: a.ActorID, Role: domain.Role(a.Role)}
}

func (a actorContext) idemActor() idempotency.ActorContext {
	return idempotency.ActorContext{ActorID: a.ActorID, Role: a.Role, IdempotencyKey: a.IdempotencyKey}
}

type meteredNotifier struct {
	next engine.Notifier
	m    *metrics.Metrics
}

func (n *meteredNotifier) ToIdentity(recipient, title, message string) {
	n.m.NotificationSent()
	n.next.ToIdentity(recipient, title, message)
}

func (n *meteredNotifier) ToRole(role domain.Role, title, message string) {
	n.m.NotificationSent()
	n.next.ToRole(role, title, message)
}

type repositories struct {
	bills  engine.BillRepository
	deeds  engine.DeedRepository
	notes  engine.NoteRepository
	events engine.EventRepository
	notifs notify.Repository
	idem   idempotency.Store
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(strings.TrimSpace(os.Getenv("CONFIG_PATH")))
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repos repositories
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect database", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		st := store.New(pool)
		if err := st.Migrate(ctx); err != nil {
			logger.Error("migrate", "err", err)
			os.Exit(1)
		}
		repos = repositories{
			bills: st.Bills(), deeds: st.Deeds(), notes: st.Notes(),
			events: st.Events(), notifs: st.Notifications(), idem: st.Idempotency(),
		}
		logger.Info("storage ready", "backend", "postgres")
	} else {
		st := memstore.New()
		repos = repositories{
			bills: st.Bills(), deeds: st.Deeds(), notes: st.Notes(),
			events: st.Events(), notifs: st.Notifications(), idem: idempotency.NewMemoryStore(),
		}
		logger.Info("storage ready", "backend", "memory")
	}

	directory := notify.StaticDirectory{}
	for role, ids := range cfg.Roles {
		directory[domain.Role(role)] = ids
	}
	var publisher notify.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Error("kafka publisher", "err", err)
			os.Exit(1)
		}
		defer kp.Close()
		publisher = kp
	} else if cfg.Webhook.URL != "" {
		publisher = notify.NewWebhookPublisher(cfg.Webhook.URL, cfg.Webhook.Secret)
	}
	dispatcher := notify.NewDispatcher(notify.Options{
		Repository: repos.notifs,
		Directory:  directory,
		Publisher:  publisher,
		Logger:     logger,
	})
	defer dispatcher.Close()

	m := metrics.New(nil)
	svc := engine.New(engine.Dependencies{
		Bills:    repos.bills,
		Deeds:    repos.deeds,
		Notes:    repos.notes,
		Events:   repos.events,
		Notifier: &meteredNotifier{next: dispatcher, m: m},
		Logger:   logger,
	})

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// mutate wraps a handler body with idempotent replay, domain error
	// mapping and transition metrics.
	mutate := func(entity, endpoint string, run func(r *http.Request, actor actorContext) (int, map[string]any, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var probe struct {
				ActorContext actorContext `json:"actor_context"`
			}
			body, err := httpx.PeekJSON(r, &probe)
			if err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			r.Body = body
			actor := probe.ActorContext
			if strings.TrimSpace(actor.ActorID) == "" || strings.TrimSpace(actor.Role) == "" {
				httpx.WriteError(w, 400, "BAD_REQUEST", "actor_context.actor_id and actor_context.role are required", nil)
				return
			}
			if status, saved, replayed, err := idempotency.Replay(r.Context(), repos.idem, actor.idemActor(), endpoint); err != nil {
				httpx.WriteError(w, 500, "INTERNAL", err.Error(), nil)
				return
			} else if replayed {
				httpx.WriteJSON(w, status, saved)
				return
			}
			status, resp, err := run(r, actor)
			if err != nil {
				m.TransitionError(entity)
				httpx.WriteDomainError(w, err)
				return
			}
			if err := idempotency.Save(r.Context(), repos.idem, actor.idemActor(), endpoint, status, resp); err != nil {
				logger.Warn("save idempotency record", "endpoint", endpoint, "err", err)
			}
			httpx.WriteJSON(w, status, resp)
		}
	}

	r.Route("/pay", func(api chi.Router) {
		api.Post("/bills", mutate("bill", "POST /pay/bills", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext  actorContext `json:"actor_context"`
				AmountMinor   int64        `json:"amount_minor"`
				Currency      string       `json:"currency"`
				InvoiceDate   time.Time    `json:"invoice_date"`
				DueDate       time.Time    `json:"due_date"`
				WorkStartDate *time.Time   `json:"work_start_date,omitempty"`
				WorkEndDate   *time.Time   `json:"work_end_date,omitempty"`
				Reference     string       `json:"reference,omitempty"`
				Description   string       `json:"description,omitempty"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			bill, err := svc.Submit(r.Context(), actor.engineActor(), engine.SubmitBillInput{
				AmountMinor:   req.AmountMinor,
				Currency:      req.Currency,
				InvoiceDate:   req.InvoiceDate,
				DueDate:       req.DueDate,
				WorkStartDate: req.WorkStartDate,
				WorkEndDate:   req.WorkEndDate,
				Reference:     req.Reference,
				Description:   req.Description,
			})
			if err != nil {
				return 0, nil, err
			}
			m.Transition("bill", string(bill.Status))
			return 201, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
		}))

		api.Get("/bills/{bill_id}", func(w http.ResponseWriter, r *http.Request) {
			bill, err := svc.GetBill(r.Context(), chi.URLParam(r, "bill_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"bill": bill})
		})

		api.Get("/bills/{bill_id}/events", func(w http.ResponseWriter, r *http.Request) {
			events, err := svc.ListEvents(r.Context(), chi.URLParam(r, "bill_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"events": events})
		})

		// plain hops share one body shape: just the actor context
		hop := func(verb string, run func(ctx context.Context, actor engine.Actor, billID string) (domain.Bill, error)) {
			endpoint := "POST /pay/bills/{bill_id}:" + verb
			api.Post("/bills/{bill_id}:"+verb, mutate("bill", endpoint, func(r *http.Request, actor actorContext) (int, map[string]any, error) {
				bill, err := run(r.Context(), actor.engineActor(), chi.URLParam(r, "bill_id"))
				if err != nil {
					return 0, nil, err
				}
				m.Transition("bill", string(bill.Status))
				return 200, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
			}))
		}
		hop("startReview", svc.StartReview)
		hop("acceptOffer", svc.AcceptOffer)
		hop("beginAgencyReview", svc.BeginAgencyReview)
		hop("finalizeTerms", svc.FinalizeTerms)
		hop("sendAgreement", svc.SendAgreement)
		hop("beginTreasuryReview", svc.BeginTreasuryReview)

		api.Post("/bills/{bill_id}:makeOffer", mutate("bill", "POST /pay/bills/{bill_id}:makeOffer", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext     actorContext `json:"actor_context"`
				OfferAmountMinor int64        `json:"offer_amount_minor"`
				DiscountRate     float64      `json:"discount_rate"`
				ValidUntil       time.Time    `json:"valid_until,omitempty"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			bill, err := svc.MakeOffer(r.Context(), actor.engineActor(), chi.URLParam(r, "bill_id"), engine.OfferInput{
				OfferAmountMinor: req.OfferAmountMinor,
				DiscountRate:     req.DiscountRate,
				ValidUntil:       req.ValidUntil,
			})
			if err != nil {
				return 0, nil, err
			}
			m.Transition("bill", string(bill.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
		}))

		api.Post("/bills/{bill_id}:approve", mutate("bill", "POST /pay/bills/{bill_id}:approve", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext    actorContext `json:"actor_context"`
				PaymentQuarters int          `json:"payment_quarters"`
				StartQuarter    string       `json:"start_quarter"`
				Notes           string       `json:"notes,omitempty"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			bill, err := svc.Approve(r.Context(), actor.engineActor(), chi.URLParam(r, "bill_id"), engine.ApproveInput{
				PaymentQuarters: req.PaymentQuarters,
				StartQuarter:    req.StartQuarter,
				Notes:           req.Notes,
			})
			if err != nil {
				return 0, nil, err
			}
			m.Transition("bill", string(bill.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
		}))

		api.Post("/bills/{bill_id}:certify", mutate("bill", "POST /pay/bills/{bill_id}:certify", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext      actorContext `json:"actor_context"`
				CertificateNumber string       `json:"certificate_number"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			bill, err := svc.Certify(r.Context(), actor.engineActor(), chi.URLParam(r, "bill_id"), req.CertificateNumber)
			if err != nil {
				return 0, nil, err
			}
			m.Transition("bill", string(bill.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
		}))

		api.Post("/bills/{bill_id}:reject", mutate("bill", "POST /pay/bills/{bill_id}:reject", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext actorContext `json:"actor_context"`
				Reason       string       `json:"reason"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			bill, err := svc.Reject(r.Context(), actor.engineActor(), chi.URLParam(r, "bill_id"), req.Reason)
			if err != nil {
				return 0, nil, err
			}
			m.Transition("bill", string(bill.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "bill": bill}, nil
		}))

		api.Post("/deeds", mutate("deed", "POST /pay/deeds", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext       actorContext           `json:"actor_context"`
				BillID             string                 `json:"bill_id"`
				AssignorID         string                 `json:"assignor_id"`
				ProcuringEntityID  string                 `json:"procuring_entity_id"`
				PrincipalMinor     int64                  `json:"principal_minor"`
				DiscountRate       float64                `json:"discount_rate"`
				PurchasePriceMinor int64                  `json:"purchase_price_minor"`
				Content            domain.DocumentContent `json:"content"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			deed, err := svc.CreateDeed(r.Context(), actor.engineActor(), engine.CreateDeedInput{
				BillID:             req.BillID,
				AssignorID:         req.AssignorID,
				ProcuringEntityID:  req.ProcuringEntityID,
				PrincipalMinor:     req.PrincipalMinor,
				DiscountRate:       req.DiscountRate,
				PurchasePriceMinor: req.PurchasePriceMinor,
				Content:            req.Content,
			})
			if err != nil {
				return 0, nil, err
			}
			m.Transition("deed", string(deed.Status))
			return 201, map[string]any{"request_id": httpx.NewRequestID(), "deed": deed}, nil
		}))

		api.Get("/deeds/{deed_id}", func(w http.ResponseWriter, r *http.Request) {
			deed, err := svc.GetDeed(r.Context(), chi.URLParam(r, "deed_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"deed": deed})
		})

		api.Get("/deeds/{deed_id}/events", func(w http.ResponseWriter, r *http.Request) {
			events, err := svc.ListEvents(r.Context(), chi.URLParam(r, "deed_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"events": events})
		})

		api.Post("/deeds/{deed_id}:sign", mutate("deed", "POST /pay/deeds/{deed_id}:sign", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext  actorContext `json:"actor_context"`
				SignerRole    string       `json:"signer_role"`
				WalletAddress string       `json:"wallet_address"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			deed, sig, err := svc.SignDeed(r.Context(), actor.engineActor(), chi.URLParam(r, "deed_id"), domain.SignerRole(req.SignerRole), req.WalletAddress)
			if err != nil {
				return 0, nil, err
			}
			m.Transition("deed", string(deed.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "deed": deed, "signature": sig}, nil
		}))

		api.Post("/notes", mutate("note", "POST /pay/notes", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext actorContext      `json:"actor_context"`
				DeedID       string            `json:"deed_id"`
				Currency     string            `json:"currency"`
				IssueDate    time.Time         `json:"issue_date"`
				MaturityDate time.Time         `json:"maturity_date"`
				Metadata     map[string]string `json:"metadata,omitempty"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			note, err := svc.GenerateNote(r.Context(), actor.engineActor(), engine.GenerateNoteInput{
				DeedID:       req.DeedID,
				Currency:     req.Currency,
				IssueDate:    req.IssueDate,
				MaturityDate: req.MaturityDate,
				Metadata:     req.Metadata,
			})
			if err != nil {
				return 0, nil, err
			}
			m.Transition("note", string(note.Status))
			return 201, map[string]any{"request_id": httpx.NewRequestID(), "note": note}, nil
		}))

		api.Get("/notes/{note_id}", func(w http.ResponseWriter, r *http.Request) {
			note, err := svc.GetNote(r.Context(), chi.URLParam(r, "note_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"note": note})
		})

		noteHop := func(verb string, run func(ctx context.Context, actor engine.Actor, noteID string) (domain.ReceivableNote, error)) {
			endpoint := "POST /pay/notes/{note_id}:" + verb
			api.Post("/notes/{note_id}:"+verb, mutate("note", endpoint, func(r *http.Request, actor actorContext) (int, map[string]any, error) {
				note, err := run(r.Context(), actor.engineActor(), chi.URLParam(r, "note_id"))
				if err != nil {
					return 0, nil, err
				}
				m.Transition("note", string(note.Status))
				return 200, map[string]any{"request_id": httpx.NewRequestID(), "note": note}, nil
			}))
		}
		noteHop("list", svc.ListNote)
		noteHop("redeem", svc.RedeemNote)

		api.Post("/notes/{note_id}:mint", mutate("note", "POST /pay/notes/{note_id}:mint", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext  actorContext `json:"actor_context"`
				WalletAddress string       `json:"wallet_address"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			note, err := svc.MintNote(r.Context(), actor.engineActor(), chi.URLParam(r, "note_id"), req.WalletAddress)
			if err != nil {
				return 0, nil, err
			}
			m.Transition("note", string(note.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "note": note}, nil
		}))

		api.Post("/notes/{note_id}:markSold", mutate("note", "POST /pay/notes/{note_id}:markSold", func(r *http.Request, actor actorContext) (int, map[string]any, error) {
			var req struct {
				ActorContext actorContext `json:"actor_context"`
				InvestorID   string       `json:"investor_id"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				return 0, nil, domain.Invalid("body", err.Error())
			}
			note, err := svc.MarkSold(r.Context(), actor.engineActor(), chi.URLParam(r, "note_id"), req.InvestorID)
			if err != nil {
				return 0, nil, err
			}
			m.Transition("note", string(note.Status))
			return 200, map[string]any{"request_id": httpx.NewRequestID(), "note": note}, nil
		}))

		api.Get("/notifications/{recipient}", func(w http.ResponseWriter, r *http.Request) {
			rows, err := repos.notifs.ListByRecipient(r.Context(), chi.URLParam(r, "recipient"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"notifications": rows})
		})

		api.Get("/notifications/{recipient}/unread-count", func(w http.ResponseWriter, r *http.Request) {
			n, err := repos.notifs.UnreadCount(r.Context(), chi.URLParam(r, "recipient"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"unread": n})
		})

		api.Post("/notifications/{recipient}/{notification_id}:markRead", func(w http.ResponseWriter, r *http.Request) {
			err := repos.notifs.MarkRead(r.Context(), chi.URLParam(r, "recipient"), chi.URLParam(r, "notification_id"), time.Now().UTC())
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			w.WriteHeader(204)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
