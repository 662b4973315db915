package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Processor delivers queued email tasks through a Mailer.
type Processor struct {
	mailer Mailer
	log    *zap.Logger
}

func NewProcessor(mailer Mailer, log *zap.Logger) *Processor {
	return &Processor{mailer: mailer, log: log}
}

// Mux routes every email task type to the processor.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, p.HandleEmail)
	mux.HandleFunc(TaskPaymentReceived, p.HandleEmail)
	mux.HandleFunc(TaskKYCReviewed, p.HandleEmail)
	return mux
}

// HandleEmail sends the envelope carried by any email task payload.
func (p *Processor) HandleEmail(ctx context.Context, t *asynq.Task) error {
	var payload struct {
		Envelope EmailEnvelope `json:"envelope"`
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A malformed payload will never succeed
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	env := payload.Envelope
	if env.To == "" {
		return fmt.Errorf("%s task without recipient: %w", t.Type(), asynq.SkipRetry)
	}

	if err := p.mailer.Send(ctx, env.To, env.Subject, env.Body); err != nil {
		p.log.Error("email send failed", zap.String("type", t.Type()), zap.String("to", env.To), zap.Error(err))
		return err
	}
	p.log.Info("email sent", zap.String("type", t.Type()), zap.String("to", env.To))
	return nil
}

// Server runs the asynq worker for the email queues.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(redis asynq.RedisConnOpt, p *Processor) *Server {
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
	})
	return &Server{srv: srv, mux: p.Mux()}
}

// Start begins processing in the background.
func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
