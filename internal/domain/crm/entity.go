package crm

import "time"

// Contact is the minimal slice of the CRM contact aggregate the reliability
// core needs: enough to demonstrate the atomic mutate-and-append write path.
type Contact struct {
	ID        string
	TenantID  string
	Email     string
	FirstName string
	LastName  string
	AccountID string
	CreatedAt time.Time
}

// Activity is a timeline entry derived from events (email sent/opened,
// meeting confirmed). Written by event handlers, never by the dispatcher.
type Activity struct {
	ID         string
	TenantID   string
	Type       string
	Title      string
	ContactID  string
	AccountID  string
	SourceType string
	SourceID   string
	Metadata   []byte
	OccurredAt time.Time
	CreatedAt  time.Time
}
