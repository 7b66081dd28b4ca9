package subscription

import (
	"slices"
	"time"
)

const EventAlertTriggered = "alert.triggered"

type Subscription struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) Subscribes(event string) bool {
	return slices.Contains(s.Events, event)
}
