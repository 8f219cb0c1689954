package outbox

import (
	"context"
	"encoding/json"

	"github.com/NordCoder/Warden/internal/apperr"
	"github.com/NordCoder/Warden/internal/domain/mail"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/google/uuid"
)

var _ mail.Dispatcher = (*MailDispatcher)(nil)

// MailDispatcher records mail requests in the outbox. Called inside a
// transaction, the request commits or rolls back with it.
type MailDispatcher struct {
	repo outbox.Repository
}

func NewMailDispatcher(repo outbox.Repository) *MailDispatcher {
	return &MailDispatcher{repo: repo}
}

func (d *MailDispatcher) Dispatch(ctx context.Context, r mail.Requested) error {
	data, err := json.Marshal(r)
	if err != nil {
		return apperr.Internal("mail.dispatch", err)
	}
	if err := d.repo.Enqueue(ctx, uuid.NewString(), outbox.KindMailRequested, data); err != nil {
		return apperr.Mail("mail.dispatch", err)
	}
	return nil
}
