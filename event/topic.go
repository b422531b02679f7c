package event

import "time"

// Topics the framework publishes on.
const (
	// ReloadConfig carries the re-read configuration after the config file
	// changes on disk.
	ReloadConfig = "ReloadConfig"
)

// Subscriber receives the published payload. Subscribers run concurrently;
// a slow subscriber delays the publisher up to the topic timeout.
type Subscriber func(param any)

// Topic subscription list for a single topic.
type Topic struct {
	timeout     time.Duration // Publish gives up waiting after this. Zero waits forever.
	subscribers []Subscriber  // Subscription queue.
}
