package domain

import "time"

type Notification struct {
	NotificationID string     `json:"notification_id"`
	Recipient      string     `json:"recipient"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

func (n Notification) Read() bool { return n.ReadAt != nil }

func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		t := at.UTC()
		n.ReadAt = &t
	}
}
