package workers

import (
	"fmt"
	"time"

	"history-guide/utils/logger"

	"go.uber.org/zap"
)

// Notifier delivers a message to a user. Delivery channels (push, email)
// plug in here.
type Notifier interface {
	Notify(userID, subject, message string) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(userID, subject, message string) error {
	logger.Zlog.Info("Notify", zap.String("userID", userID), zap.String("subject", subject), zap.String("message", message))
	return nil
}

func humanDuration(enteredUnix, firedUnix int64) string {
	d := time.Unix(firedUnix, 0).Sub(time.Unix(enteredUnix, 0)).Round(time.Minute)
	if d < time.Minute {
		return "a moment"
	}
	return fmt.Sprintf("%d min", int(d.Minutes()))
}
