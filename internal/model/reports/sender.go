package reports

import (
	"context"

	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/logger"
)

type messageSender interface {
	SendMessage(text string, userID int64) error
}

// Sender pushes generated digests out through the chat transport. A
// failed delivery to one user does not stop the rest.
type Sender struct {
	client messageSender
}

func NewSender(client messageSender) *Sender {
	return &Sender{client: client}
}

func (s *Sender) SendDigests(ctx context.Context, digests []Digest) {
	logger.Info("SendDigests - start", zap.Int("count", len(digests)))
	defer logger.Info("SendDigests - end")

	for _, d := range digests {
		select {
		case <-ctx.Done():
			logger.Info("digest delivery cancelled")
			return
		default:
		}
		if err := s.client.SendMessage(d.Text, d.UserID); err != nil {
			logger.Error("failed to deliver digest", zap.Error(err), zap.Int64("userID", d.UserID))
		}
	}
}
