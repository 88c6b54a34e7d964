package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edusetu/school-onboard-api/pkg/jobs"
)

type message struct {
	To      string
	Subject string
	HTML    string
}

// Async delivers mail through a background queue so SMTP latency and
// transient failures never block the request path. Failed sends are retried
// by the queue.
type Async struct {
	queue *jobs.Queue
}

// NewAsync wraps a Mailer with a worker queue.
func NewAsync(m *Mailer, cfg jobs.QueueConfig) *Async {
	handler := func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(message)
		if !ok {
			return fmt.Errorf("unexpected mail payload %T", job.Payload)
		}
		return m.Send(msg.To, msg.Subject, msg.HTML)
	}
	return &Async{queue: jobs.NewQueue("mail", handler, cfg)}
}

// Start launches the queue workers.
func (a *Async) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop drains the workers.
func (a *Async) Stop() {
	a.queue.Stop()
}

// Send enqueues a message for background delivery.
func (a *Async) Send(to, subject, html string) error {
	return a.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "mail",
		Payload: message{To: to, Subject: subject, HTML: html},
	})
}
