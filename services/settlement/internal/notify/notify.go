// Package notify delivers lifecycle notifications out of band. Transitions
// enqueue; a single background worker persists rows, fans role-addressed
// messages out to identities, and forwards each message to the configured
// sink. Delivery failure never surfaces back into a transition.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"payablelane/pkg/domain"

	"github.com/google/uuid"
)

// RoleDirectory resolves a platform role to the identities currently
// holding it.
type RoleDirectory interface {
	IdentitiesForRole(role domain.Role) []string
}

// StaticDirectory is a fixed role-to-identities map.
type StaticDirectory map[domain.Role][]string

func (d StaticDirectory) IdentitiesForRole(role domain.Role) []string {
	return d[role]
}

// Repository persists notification rows for later retrieval.
type Repository interface {
	Save(ctx context.Context, row domain.Notification) error
	ListByRecipient(ctx context.Context, recipient string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipient, notificationID string, at time.Time) error
	UnreadCount(ctx context.Context, recipient string) (int, error)
}

// Publisher forwards a notification to an external transport. Best effort.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

type item struct {
	recipient string
	role      domain.Role
	byRole    bool
	title     string
	message   string
}

type Dispatcher struct {
	repo      Repository
	directory RoleDirectory
	publisher Publisher
	logger    *slog.Logger
	nowFn     func() time.Time

	queue  chan item
	done   chan struct{}
	closed sync.Once
}

type Options struct {
	Repository Repository
	Directory  RoleDirectory
	Publisher  Publisher
	Logger     *slog.Logger
	QueueSize  int
	NowFn      func() time.Time
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NowFn == nil {
		opts.NowFn = func() time.Time { return time.Now().UTC() }
	}
	d := &Dispatcher{
		repo:      opts.Repository,
		directory: opts.Directory,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		nowFn:     opts.NowFn,
		queue:     make(chan item, opts.QueueSize),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) ToIdentity(recipient, title, message string) {
	d.enqueue(item{recipient: recipient, title: title, message: message})
}

func (d *Dispatcher) ToRole(role domain.Role, title, message string) {
	d.enqueue(item{role: role, byRole: true, title: title, message: message})
}

func (d *Dispatcher) enqueue(it item) {
	select {
	case d.queue <- it:
	default:
		d.logger.Warn("notification queue full, dropping", "title", it.title)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.closed.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for it := range d.queue {
		recipients := []string{it.recipient}
		if it.byRole {
			if d.directory == nil {
				continue
			}
			recipients = d.directory.IdentitiesForRole(it.role)
		}
		for _, rcpt := range recipients {
			d.deliver(rcpt, it)
		}
	}
}

func (d *Dispatcher) deliver(recipient string, it item) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := domain.Notification{
		NotificationID: "ntf_" + uuid.NewString(),
		Recipient:      recipient,
		Title:          it.title,
		Message:        it.message,
		CreatedAt:      d.nowFn(),
	}
	if d.repo != nil {
		if err := d.repo.Save(ctx, row); err != nil {
			d.logger.Warn("save notification failed", "recipient", recipient, "err", err)
		}
	}
	if d.publisher != nil {
		payload, err := json.Marshal(row)
		if err != nil {
			d.logger.Warn("encode notification failed", "err", err)
			return
		}
		if err := d.publisher.Publish(ctx, "notification.created", payload, recipient); err != nil {
			d.logger.Warn("publish notification failed", "recipient", recipient, "err", err)
		}
	}
}
