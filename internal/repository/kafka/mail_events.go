package kafka

import (
	"context"

	"github.com/NordCoder/Warden/internal/domain/kafka"
	"github.com/NordCoder/Warden/internal/domain/mail"
)

// MailEvents publishes mail requests keyed by user id, so requests for one
// user stay ordered on a partition.
type MailEvents struct {
	p *Producer
}

func NewMailEvents(p *Producer) *MailEvents { return &MailEvents{p: p} }

var _ kafka.MailEvents = (*MailEvents)(nil)

func (e *MailEvents) PublishMailRequested(ctx context.Context, r mail.Requested) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(r.UserID), r)
}
