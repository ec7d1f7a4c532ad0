package bot

import (
	"sync"
	"time"
)

// promptTTL bounds how long a chat stays in the awaiting-URL state.
const promptTTL = 5 * time.Minute

// urlPrompts is a per-chat two-state machine: Idle or AwaitingURL. A chat
// enters AwaitingURL via arm (the "Add" flow), leaves it when the next text
// message arrives (consume), on explicit cancel, or when the prompt expires.
type urlPrompts struct {
	mu       sync.Mutex
	awaiting map[int64]time.Time // chat id -> prompt expiry
}

func newURLPrompts() *urlPrompts {
	return &urlPrompts{awaiting: make(map[int64]time.Time)}
}

// arm transitions a chat to AwaitingURL.
func (p *urlPrompts) arm(chatID int64) {
	p.mu.Lock()
	p.awaiting[chatID] = time.Now().Add(promptTTL)
	p.mu.Unlock()
}

// consume reports whether the chat was in AwaitingURL and transitions it
// back to Idle.
func (p *urlPrompts) consume(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	expiry, ok := p.awaiting[chatID]
	if !ok {
		return false
	}
	delete(p.awaiting, chatID)
	return time.Now().Before(expiry)
}

// cancel transitions a chat back to Idle, reporting whether it was armed.
func (p *urlPrompts) cancel(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.awaiting[chatID]
	delete(p.awaiting, chatID)
	return ok
}
