package broadcast

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/restutil"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Message is a system-level notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"message"`
	Label string `json:"source_label"`
}

// Notifier raises system-level notifications.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	trace.Logger(ctx).Info(msg.Title, "message", msg.Body, "label", msg.Label)
	return nil
}

// WebhookNotifier POSTs notifications as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	Message
	Timestamp time.Time `json:"timestamp"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	body := webhookPayload{Message: msg, Timestamp: time.Now().UTC()}
	return restutil.DoJSON(ctx, w.client, http.MethodPost, w.url, nil, body, nil)
}

// Notifiers fans a notification out to several notifiers, joining failures.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
