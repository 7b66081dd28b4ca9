package delivery

import "time"

type Delivery struct {
	ID             int64     `json:"id"`
	AlertID        int64     `json:"alert_id"`
	SubscriptionID int64     `json:"subscription_id"`
	URL            string    `json:"url"`
	Event          string    `json:"event"`
	StatusCode     int       `json:"status_code"`
	OK             bool      `json:"ok"`
	Error          string    `json:"error,omitempty"`
	LatencyMS      int64     `json:"latency_ms"`
	At             time.Time `json:"at"`
}
