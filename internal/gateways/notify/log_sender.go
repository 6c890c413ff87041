package notify

import (
	"context"
	"log/slog"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
)

// LogSender writes notifications to the log instead of a push service.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n progression.Notification) error {
	slog.Info("Notification sent",
		slog.String("type", "notify"),
		slog.String("kind", string(n.Kind)),
		slog.Int64("account_id", n.AccountID),
		slog.Int64("ref_id", n.RefID),
		slog.String("message", n.Message))
	return nil
}
