package mobile

import (
	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

const (
	NotifyTitle = "New behavior detected"
	NotifyBody  = "A new behavior has been detected and added."
)

// Notifier posts a local notification.
type Notifier interface {
	Notify(title, body string) error
}

// HubNotifier delivers notifications as hub events, which is how a
// headless client surfaces them.
type HubNotifier struct {
	emit func(any)
	log  *eventlog.Logger
}

func NewHubNotifier(emit func(any), logger *eventlog.Logger) *HubNotifier {
	return &HubNotifier{emit: emit, log: logger}
}

func (n *HubNotifier) Notify(title, body string) error {
	n.log.Infof("notification: %s", title)
	if n.emit != nil {
		n.emit(telemetry.Notification{
			Event: telemetry.New(telemetry.EventNotification, "notify"),
			Title: title,
			Body:  body,
		})
	}
	return nil
}
