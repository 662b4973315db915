package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher turns committed ledger events into email tasks.
type Dispatcher struct {
	client  Enqueuer
	appURL  string
	log     *zap.Logger
	retries int
}

func NewDispatcher(client Enqueuer, appURL string, log *zap.Logger) *Dispatcher {
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	return &Dispatcher{client: client, appURL: strings.TrimRight(appURL, "/"), log: log, retries: 5}
}

// Observe implements ledger.Observer.
func (d *Dispatcher) Observe(ctx context.Context, e ledger.Event) error {
	task, err := d.taskFor(e)
	if err != nil || task == nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(QueueEmails), asynq.MaxRetry(d.retries))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	d.log.Debug("email task enqueued", zap.String("type", task.Type()), zap.String("task_id", info.ID))
	return nil
}

func (d *Dispatcher) taskFor(e ledger.Event) (*asynq.Task, error) {
	switch e.Kind {
	case ledger.EventRegistered:
		if e.User == nil {
			return nil, nil
		}
		return NewWelcomeTask(e.User, d.appURL, e)
	case ledger.EventPaid:
		if e.User == nil || e.Counterparty == nil || len(e.Transactions) == 0 {
			return nil, nil
		}
		return NewPaymentReceivedTask(e.User, e.Counterparty, e.Transactions[0], e)
	case ledger.EventKYCReviewed:
		if e.User == nil || e.Document == nil {
			return nil, nil
		}
		return NewKYCReviewedTask(e.User, e.Document, e)
	}
	return nil, nil
}

// NewWelcomeTask builds the welcome email for a new user.
func NewWelcomeTask(u *ledger.User, appURL string, e ledger.Event) (*asynq.Task, error) {
	name := displayName(u)
	payload := WelcomeEmailPayload{
		UserID: u.ID,
		Name:   name,
		Email:  u.Email,
		Envelope: EmailEnvelope{
			To:      u.Email,
			Subject: fmt.Sprintf("Welcome to CryptoFintech, %s!", name),
			Body: fmt.Sprintf("Hi %s,\n\nYour account is ready and your INR wallet has been credited with %s INR.\n\nSign in: %s/login",
				name, ledger.StartingGrant.String(), appURL),
		},
		SentAt: e.At,
	}
	return newTask(TaskWelcomeEmail, payload)
}

// NewPaymentReceivedTask builds the notification for the payment recipient.
func NewPaymentReceivedTask(sender, recipient *ledger.User, send ledger.Transaction, e ledger.Event) (*asynq.Task, error) {
	body := fmt.Sprintf("Hi %s,\n\n%s sent you %s %s.",
		displayName(recipient), displayName(sender), send.Amount.String(), send.FromCurrency)
	if send.Note != "" {
		body += "\n\nNote: " + send.Note
	}
	payload := PaymentReceivedPayload{
		CorrelationID: send.CorrelationID,
		SenderID:      sender.ID,
		RecipientID:   recipient.ID,
		Email:         recipient.Email,
		Currency:      string(send.FromCurrency),
		Amount:        send.Amount.String(),
		Envelope: EmailEnvelope{
			To:      recipient.Email,
			Subject: fmt.Sprintf("You received %s %s", send.Amount.String(), send.FromCurrency),
			Body:    body,
		},
		SentAt: e.At,
	}
	return newTask(TaskPaymentReceived, payload)
}

// NewKYCReviewedTask builds the review outcome email.
func NewKYCReviewedTask(u *ledger.User, doc *ledger.KYCDocument, e ledger.Event) (*asynq.Task, error) {
	body := fmt.Sprintf("Hi %s,\n\nYour %s document has been %s.", displayName(u), doc.DocumentType, doc.Status)
	if doc.Status == ledger.KYCRejected && doc.RejectionReason != "" {
		body += "\n\nReason: " + doc.RejectionReason
	}
	payload := KYCReviewedPayload{
		DocumentID: doc.ID,
		UserID:     u.ID,
		Email:      u.Email,
		Status:     string(doc.Status),
		Envelope: EmailEnvelope{
			To:      u.Email,
			Subject: "Your KYC verification was " + string(doc.Status),
			Body:    body,
		},
		SentAt: e.At,
	}
	return newTask(TaskKYCReviewed, payload)
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, b), nil
}

func displayName(u *ledger.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}
