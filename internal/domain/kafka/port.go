package kafka

import (
	"context"

	"github.com/NordCoder/Warden/internal/domain/mail"
)

type MailEvents interface {
	PublishMailRequested(ctx context.Context, r mail.Requested) error
}
