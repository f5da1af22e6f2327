package models

import "time"

// Notification is the payload delivered to foreground listeners while the
// app is running. Received events carry server pushes, response events carry
// the user's interaction with a displayed notification.
type Notification struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Notification event kinds
const (
	EventNotificationReceived = "notification_received"
	EventNotificationResponse = "notification_response"
)
