package testutil

import "sync"

// Notification is one recorded Notify call.
type Notification struct {
	UserID string
	Type   string
	Data   any
}

// Notifier records notifications instead of delivering them.
type Notifier struct {
	mu     sync.Mutex
	events []Notification
}

func (n *Notifier) Notify(userID, eventType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notification{UserID: userID, Type: eventType, Data: data})
}

// Events returns a copy of everything recorded so far.
func (n *Notifier) Events() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.events...)
}
