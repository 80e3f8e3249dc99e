package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/orderflow"
)

// LogNotifier stands in when the broker is unreachable at startup: terminal
// transitions still complete, the notification content just lands in the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCustomer(_ context.Context, notification orderflow.CustomerNotification) error {
	n.logger.Info("customer notification (log-only mode)",
		zap.String("message_id", notification.MessageID),
		zap.String("email", notification.Email),
		zap.String("numero_pedido", notification.OrderNumber),
		zap.String("subject", notification.Subject))
	return nil
}
