package email

import (
	"context"
)

type Service interface {
	SendNotification(ctx context.Context, to string, subject string, content string) error
}
