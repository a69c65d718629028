// Package store is the postgres implementation of the settlement
// repositories. Rows carry the full document as JSONB next to the key
// columns; updates are guarded by a version check so a stale writer gets
// domain.ErrConflict instead of silently clobbering.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"payablelane/pkg/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settlement_bills(
  bill_id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  version BIGINT NOT NULL,
  doc JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS settlement_deeds(
  deed_id TEXT PRIMARY KEY,
  bill_id TEXT NOT NULL,
  status TEXT NOT NULL,
  version BIGINT NOT NULL,
  doc JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS settlement_notes(
  note_id TEXT PRIMARY KEY,
  deed_id TEXT NOT NULL,
  status TEXT NOT NULL,
  version BIGINT NOT NULL,
  doc JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS settlement_events(
  event_id TEXT PRIMARY KEY,
  entity_id TEXT NOT NULL,
  occurred_at TIMESTAMPTZ NOT NULL,
  doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS settlement_events_entity ON settlement_events(entity_id, occurred_at);
CREATE TABLE IF NOT EXISTS settlement_notifications(
  notification_id TEXT PRIMARY KEY,
  recipient TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  read_at TIMESTAMPTZ,
  doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS settlement_notifications_recipient ON settlement_notifications(recipient, created_at);
CREATE TABLE IF NOT EXISTS settlement_idempotency_records(
  actor_id TEXT NOT NULL,
  idempotency_key TEXT NOT NULL,
  endpoint TEXT NOT NULL,
  response_status INT NOT NULL,
  response_body JSONB,
  PRIMARY KEY (actor_id, idempotency_key, endpoint)
);
`)
	return err
}

func (s *Store) Bills() *BillStore { return &BillStore{s.DB} }
func (s *Store) Deeds() *DeedStore { return &DeedStore{s.DB} }
func (s *Store) Notes() *NoteStore { return &NoteStore{s.DB} }
func (s *Store) Events() *EventStore {
	return &EventStore{s.DB}
}
func (s *Store) Notifications() *NotificationStore { return &NotificationStore{s.DB} }

type BillStore struct{ db *pgxpool.Pool }

func (s *BillStore) Create(ctx context.Context, row domain.Bill) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_bills(bill_id,status,version,doc,updated_at)
VALUES($1,$2,$3,$4::jsonb,$5)
`, row.BillID, string(row.Status), row.Version, string(doc), row.UpdatedAt)
	return err
}

func (s *BillStore) Get(ctx context.Context, billID string) (domain.Bill, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM settlement_bills WHERE bill_id=$1`, billID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bill{}, domain.ErrNotFound
		}
		return domain.Bill{}, err
	}
	var row domain.Bill
	if err := json.Unmarshal(doc, &row); err != nil {
		return domain.Bill{}, err
	}
	return row, nil
}

func (s *BillStore) Update(ctx context.Context, row domain.Bill) error {
	next := row
	next.Version++
	doc, err := json.Marshal(next)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE settlement_bills SET status=$2, version=$3, doc=$4::jsonb, updated_at=$5
WHERE bill_id=$1 AND version=$6
`, row.BillID, string(next.Status), next.Version, string(doc), next.UpdatedAt, row.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *BillStore) List(ctx context.Context) ([]domain.Bill, error) {
	rows, err := s.db.Query(ctx, `SELECT doc FROM settlement_bills ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Bill
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var row domain.Bill
		if err := json.Unmarshal(doc, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type DeedStore struct{ db *pgxpool.Pool }

func (s *DeedStore) Create(ctx context.Context, row domain.Deed) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_deeds(deed_id,bill_id,status,version,doc,updated_at)
VALUES($1,$2,$3,$4,$5::jsonb,$6)
`, row.DeedID, row.BillID, string(row.Status), row.Version, string(doc), row.UpdatedAt)
	return err
}

func (s *DeedStore) Get(ctx context.Context, deedID string) (domain.Deed, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM settlement_deeds WHERE deed_id=$1`, deedID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deed{}, domain.ErrNotFound
		}
		return domain.Deed{}, err
	}
	var row domain.Deed
	if err := json.Unmarshal(doc, &row); err != nil {
		return domain.Deed{}, err
	}
	return row, nil
}

func (s *DeedStore) Update(ctx context.Context, row domain.Deed) error {
	next := row
	next.Version++
	doc, err := json.Marshal(next)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE settlement_deeds SET status=$2, version=$3, doc=$4::jsonb, updated_at=$5
WHERE deed_id=$1 AND version=$6
`, row.DeedID, string(next.Status), next.Version, string(doc), next.UpdatedAt, row.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

type NoteStore struct{ db *pgxpool.Pool }

func (s *NoteStore) Create(ctx context.Context, row domain.ReceivableNote) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_notes(note_id,deed_id,status,version,doc,updated_at)
VALUES($1,$2,$3,$4,$5::jsonb,$6)
`, row.NoteID, row.DeedID, string(row.Status), row.Version, string(doc), row.UpdatedAt)
	return err
}

func (s *NoteStore) Get(ctx context.Context, noteID string) (domain.ReceivableNote, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM settlement_notes WHERE note_id=$1`, noteID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReceivableNote{}, domain.ErrNotFound
		}
		return domain.ReceivableNote{}, err
	}
	var row domain.ReceivableNote
	if err := json.Unmarshal(doc, &row); err != nil {
		return domain.ReceivableNote{}, err
	}
	return row, nil
}

func (s *NoteStore) Update(ctx context.Context, row domain.ReceivableNote) error {
	next := row
	next.Version++
	doc, err := json.Marshal(next)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
UPDATE settlement_notes SET status=$2, version=$3, doc=$4::jsonb, updated_at=$5
WHERE note_id=$1 AND version=$6
`, row.NoteID, string(next.Status), next.Version, string(doc), next.UpdatedAt, row.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

type EventStore struct{ db *pgxpool.Pool }

func (s *EventStore) Append(ctx context.Context, row domain.EntityEvent) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_events(event_id,entity_id,occurred_at,doc)
VALUES($1,$2,$3,$4::jsonb)
`, row.EventID, row.EntityID, row.OccurredAt, string(doc))
	return err
}

func (s *EventStore) ListByEntity(ctx context.Context, entityID string) ([]domain.EntityEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT doc FROM settlement_events WHERE entity_id=$1 ORDER BY occurred_at
`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EntityEvent
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var row domain.EntityEvent
		if err := json.Unmarshal(doc, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type NotificationStore struct{ db *pgxpool.Pool }

func (s *NotificationStore) Save(ctx context.Context, row domain.Notification) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_notifications(notification_id,recipient,created_at,read_at,doc)
VALUES($1,$2,$3,$4,$5::jsonb)
`, row.NotificationID, row.Recipient, row.CreatedAt, row.ReadAt, string(doc))
	return err
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient string) ([]domain.Notification, error) {
	rows, err := s.db.Query(ctx, `
SELECT doc, read_at FROM settlement_notifications WHERE recipient=$1 ORDER BY created_at
`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		var doc []byte
		var readAt *time.Time
		if err := rows.Scan(&doc, &readAt); err != nil {
			return nil, err
		}
		var row domain.Notification
		if err := json.Unmarshal(doc, &row); err != nil {
			return nil, err
		}
		row.ReadAt = readAt
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *NotificationStore) MarkRead(ctx context.Context, recipient, notificationID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE settlement_notifications SET read_at=$3
WHERE recipient=$1 AND notification_id=$2 AND read_at IS NULL
`, recipient, notificationID, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, recipient string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
SELECT count(*) FROM settlement_notifications WHERE recipient=$1 AND read_at IS NULL
`, recipient).Scan(&n)
	return n, err
}

type IdempotencyStore struct{ db *pgxpool.Pool }

func (s *Store) Idempotency() *IdempotencyStore { return &IdempotencyStore{s.DB} }

func (s *IdempotencyStore) GetRecord(ctx context.Context, actorID, idempotencyKey, endpoint string) (int, map[string]any, bool, error) {
	var status int
	var body []byte
	err := s.db.QueryRow(ctx, `
SELECT response_status, response_body
FROM settlement_idempotency_records
WHERE actor_id=$1 AND idempotency_key=$2 AND endpoint=$3
`, actorID, idempotencyKey, endpoint).Scan(&status, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, false, nil
		}
		return 0, nil, false, err
	}
	var decoded map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return 0, nil, false, err
		}
	}
	return status, decoded, true, nil
}

func (s *IdempotencyStore) SaveRecord(ctx context.Context, actorID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error {
	body, err := json.Marshal(responseBody)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO settlement_idempotency_records(actor_id,idempotency_key,endpoint,response_status,response_body)
VALUES($1,$2,$3,$4,$5::jsonb)
ON CONFLICT (actor_id,idempotency_key,endpoint) DO NOTHING
`, actorID, idempotencyKey, endpoint, responseStatus, string(body))
	return err
}
