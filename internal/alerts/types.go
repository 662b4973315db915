package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail    = "email:welcome"
	TaskPaymentReceived = "email:payment_received"
	TaskKYCReviewed     = "email:kyc_reviewed"
)

// Queue names and their asynq priorities.
const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// PaymentReceivedPayload is sent to the recipient of a payment.
type PaymentReceivedPayload struct {
	CorrelationID string        `json:"correlation_id"`
	SenderID      string        `json:"sender_id"`
	RecipientID   string        `json:"recipient_id"`
	Email         string        `json:"email"`
	Currency      string        `json:"currency"`
	Amount        string        `json:"amount"`
	Envelope      EmailEnvelope `json:"envelope"`
	SentAt        time.Time     `json:"sent_at"`
}

type KYCReviewedPayload struct {
	DocumentID string        `json:"document_id"`
	UserID     string        `json:"user_id"`
	Email      string        `json:"email"`
	Status     string        `json:"status"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}
