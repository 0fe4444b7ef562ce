package broadcast

import "time"

const (
	DefaultSendTimeout = 5 * time.Second
	NotificationTitle  = "🔔 Sound Alert"
)
