package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type sentMail struct{ to, subject, body string }

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var (
	alice = &ledger.User{ID: "u1", Username: "alice", Email: "alice@example.com", FirstName: "Alice"}
	bob   = &ledger.User{ID: "u2", Username: "bob", Email: "bob@example.com"}
)

func TestDispatcherBuildsTasks(t *testing.T) {
	q := &recordingEnqueuer{}
	d := NewDispatcher(q, "https://app.example.com/", zap.NewNop())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, d.Observe(ctx, ledger.Event{Kind: ledger.EventRegistered, At: at, UserID: alice.ID, User: alice}))
	require.NoError(t, d.Observe(ctx, ledger.Event{
		Kind:         ledger.EventPaid,
		At:           at,
		UserID:       alice.ID,
		User:         alice,
		Counterparty: bob,
		Transactions: []ledger.Transaction{{
			Type:          ledger.TxSend,
			FromCurrency:  ledger.INR,
			Amount:        decimal.NewFromInt(1000),
			CorrelationID: "c1",
			Note:          "rent",
		}},
	}))
	require.NoError(t, d.Observe(ctx, ledger.Event{
		Kind:     ledger.EventKYCReviewed,
		At:       at,
		UserID:   alice.ID,
		User:     alice,
		Document: &ledger.KYCDocument{ID: "d1", DocumentType: "passport", Status: ledger.KYCRejected, RejectionReason: "blurry"},
	}))
	// no email for conversions
	require.NoError(t, d.Observe(ctx, ledger.Event{Kind: ledger.EventConverted, UserID: alice.ID}))

	require.Len(t, q.tasks, 3)
	assert.Equal(t, TaskWelcomeEmail, q.tasks[0].Type())
	assert.Equal(t, TaskPaymentReceived, q.tasks[1].Type())
	assert.Equal(t, TaskKYCReviewed, q.tasks[2].Type())

	var welcome WelcomeEmailPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &welcome))
	assert.Equal(t, "alice@example.com", welcome.Envelope.To)
	assert.Contains(t, welcome.Envelope.Body, "https://app.example.com/login")

	var paid PaymentReceivedPayload
	require.NoError(t, json.Unmarshal(q.tasks[1].Payload(), &paid))
	assert.Equal(t, "bob@example.com", paid.Envelope.To)
	assert.Equal(t, "1000", paid.Amount)
	assert.Contains(t, paid.Envelope.Body, "Alice sent you 1000 INR")
	assert.Contains(t, paid.Envelope.Body, "Note: rent")

	var kyc KYCReviewedPayload
	require.NoError(t, json.Unmarshal(q.tasks[2].Payload(), &kyc))
	assert.Contains(t, kyc.Envelope.Body, "Reason: blurry")
}

func TestDispatcherReportsEnqueueFailure(t *testing.T) {
	q := &recordingEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(q, "", zap.NewNop())

	err := d.Observe(context.Background(), ledger.Event{Kind: ledger.EventRegistered, User: alice})
	assert.ErrorContains(t, err, "redis down")
}

func TestProcessorSendsEnvelope(t *testing.T) {
	m := &recordingMailer{}
	p := NewProcessor(m, zap.NewNop())

	task, err := NewKYCReviewedTask(alice, &ledger.KYCDocument{ID: "d1", DocumentType: "pan", Status: ledger.KYCApproved}, ledger.Event{})
	require.NoError(t, err)
	require.NoError(t, p.HandleEmail(context.Background(), task))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "alice@example.com", m.sent[0].to)
	assert.Equal(t, "Your KYC verification was approved", m.sent[0].subject)
}

func TestProcessorSkipsRetryOnBadPayload(t *testing.T) {
	p := NewProcessor(&recordingMailer{}, zap.NewNop())

	err := p.HandleEmail(context.Background(), asynq.NewTask(TaskWelcomeEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleEmail(context.Background(), asynq.NewTask(TaskWelcomeEmail, []byte(`{"envelope": {}}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorRetriesMailerFailure(t *testing.T) {
	p := NewProcessor(&recordingMailer{err: errors.New("smtp timeout")}, zap.NewNop())
	task, err := NewWelcomeTask(bob, "http://localhost:8080", ledger.Event{})
	require.NoError(t, err)

	err = p.HandleEmail(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestPlunkMailer(t *testing.T) {
	var got plunkSendBody
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "reject@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid recipient"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewPlunkMailer(PlunkConfig{APIKey: "key", From: "noreply@example.com", APIURL: srv.URL, ReplyTo: "help@example.com"}, srv.Client())
	require.NoError(t, m.Send(context.Background(), "alice@example.com", "Hi", "Body"))
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "alice@example.com", got.To)
	assert.Equal(t, "help@example.com", got.Reply)

	err := m.Send(context.Background(), "reject@example.com", "Hi", "Body")
	assert.ErrorContains(t, err, "status=400")
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("a@example.com", "b@example.com", "", "Hello", "plain body")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.NotContains(t, msg, "Reply-To")
	assert.True(t, strings.HasSuffix(msg, "\r\nplain body\r\n"))

	msg = BuildMessage("a@example.com", "b@example.com", "c@example.com", "Hello", "<html><body>hi</body></html>")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "Reply-To: c@example.com\r\n")
}
