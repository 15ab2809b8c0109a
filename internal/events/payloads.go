package events

// Payloads for the event types the built-in handlers consume. Handlers for
// other types interpret the raw payload themselves.

type ContactCreatedPayload struct {
	ContactID string `json:"contact_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

type EmailSentPayload struct {
	EmailID   string `json:"email_id"`
	ContactID string `json:"contact_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	ToEmail   string `json:"to_email"`
	Subject   string `json:"subject"`
}

type EmailOpenedPayload struct {
	EmailID   string `json:"email_id"`
	ContactID string `json:"contact_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	OpenCount int    `json:"open_count"`
	FirstOpen bool   `json:"first_open"`
}

type EmailClickedPayload struct {
	EmailID    string `json:"email_id"`
	ContactID  string `json:"contact_id,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
	URL        string `json:"url"`
	ClickCount int    `json:"click_count"`
	FirstClick bool   `json:"first_click"`
}

type MeetingConfirmedPayload struct {
	MeetingID string `json:"meeting_id"`
	ContactID string `json:"contact_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
