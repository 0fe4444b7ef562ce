package capture

import "time"

// DefaultStatusInterval spaces "Capturing audio" updates.
const DefaultStatusInterval = 2 * time.Second
