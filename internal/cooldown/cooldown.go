package cooldown

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Tracker remembers per-(provider, model, key) cooldowns after rate-limit
// responses. It lives outside the engine: the HTTP layer consults it before
// dispatching and sets it when a provider pushes back.
type Tracker struct {
	until map[string]time.Time
	mtx   sync.Mutex
	now   func() time.Time
}

func key(provider string, model string, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%s/%s/%s", provider, model, hex.EncodeToString(sum[:8]))
}

// OnCooldown reports whether the triple is cooling down and for how many
// more seconds.
func (t *Tracker) OnCooldown(provider string, model string, apiKey string) (bool, int) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	until, ok := t.until[key(provider, model, apiKey)]
	if !ok {
		return false, 0
	}

	remaining := until.Sub(t.now())
	if remaining <= 0 {
		delete(t.until, key(provider, model, apiKey))
		return false, 0
	}

	return true, int(remaining.Seconds()) + 1
}

func (t *Tracker) SetCooldown(provider string, model string, apiKey string, d time.Duration) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.until[key(provider, model, apiKey)] = t.now().Add(d)
}

func New() *Tracker {
	return &Tracker{
		until: map[string]time.Time{},
		now:   time.Now,
	}
}
