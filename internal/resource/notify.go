package resource

import "sync"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is an outcome message for the operator.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications without blocking the caller.
type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Inbox queues notifications until the view drains them.
type Inbox struct {
	mu    sync.Mutex
	queue []Notification
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	i.queue = append(i.queue, n)
	i.mu.Unlock()
}

// Drain returns the queued notifications in arrival order and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.queue
	i.queue = nil
	return out
}
