package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"catalog-service/internal/catalog"

	"github.com/prometheus/client_golang/prometheus"
)

type NotificationPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

type Notification struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// BroadcastNotifier announces created products on the notifications exchange.
// Publishing is strictly best-effort: failures are logged and swallowed, and
// a nil publisher turns the notifier into a no-op.
type BroadcastNotifier struct {
	publisher NotificationPublisher
	logger    *slog.Logger
	published prometheus.Counter
}

func NewBroadcastNotifier(publisher NotificationPublisher, logger *slog.Logger, published prometheus.Counter) *BroadcastNotifier {
	return &BroadcastNotifier{
		publisher: publisher,
		logger:    logger,
		published: published,
	}
}

func (n *BroadcastNotifier) Notify(ctx context.Context, created []catalog.Item) {
	if n.publisher == nil || len(created) == 0 {
		return
	}

	payload, err := json.Marshal(Notification{
		Subject: notificationSubject(len(created)),
		Message: notificationBody(created),
	})
	if err != nil {
		n.logger.Error("marshal notification failed", "error", err)
		return
	}

	if err := n.publisher.Publish(ctx, payload); err != nil {
		n.logger.Error("publish notification failed", "products", len(created), "error", err)
		return
	}

	n.published.Inc()
}

func notificationSubject(count int) string {
	if count == 1 {
		return "1 New Product Created"
	}
	return fmt.Sprintf("%d New Products Created", count)
}

func notificationBody(created []catalog.Item) string {
	var b strings.Builder
	for _, item := range created {
		fmt.Fprintf(&b, "- %s (id %s): price %d, stock %d\n", item.Title, item.ID, item.Price, item.Count)
	}
	fmt.Fprintf(&b, "Total: %d", len(created))
	return b.String()
}
