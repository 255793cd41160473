package dto

// EmailShareRequest is the body for POST /api/email-shares.
type EmailShareRequest struct {
	ClientID       int64  `json:"client_id"`
	RecipientEmail string `json:"recipient_email"`
	DateRangeStart string `json:"date_range_start"` // YYYY-MM-DD
	DateRangeEnd   string `json:"date_range_end"`   // YYYY-MM-DD
}
