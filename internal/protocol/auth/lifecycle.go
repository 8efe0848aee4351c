package auth

import (
	"sync"
	"time"

	"github.com/go-i2p/logger"

	"sascheck/internal/domain"
)

// kickoff decides when a run starts talking. The strategy is picked once
// from the policy and the transport's capabilities.
type kickoff interface {
	start(fire func()) (stop func())
	name() string
}

// immediate fires on the next tick. Used for durable sessions and for
// transports that cannot report link state.
type immediate struct{}

func (immediate) name() string { return "immediate" }

func (immediate) start(fire func()) func() {
	t := time.AfterFunc(0, fire)
	return func() { t.Stop() }
}

// whenUp fires when the link comes up, right away if it already is, and
// after fallback regardless unless fallback is negative.
type whenUp struct {
	link     domain.LinkNotifier
	fallback time.Duration
}

func (whenUp) name() string { return "when-up" }

func (w whenUp) start(fire func()) func() {
	unsub := w.link.OnUp(fire)
	if w.link.Connected() {
		fire()
	}
	var t *time.Timer
	if w.fallback >= 0 {
		t = time.AfterFunc(w.fallback, fire)
	}
	return func() {
		unsub()
		if t != nil {
			t.Stop()
		}
	}
}

func chooseKickoff(t domain.Transport, policy domain.Policy, fallback time.Duration) kickoff {
	if policy == domain.PolicyDurable {
		return immediate{}
	}
	if link, ok := t.(domain.LinkNotifier); ok {
		return whenUp{link: link, fallback: fallback}
	}
	return immediate{}
}

// Lifecycle starts a run exactly once and releases the transport
// subscriptions it took.
type Lifecycle struct {
	once     sync.Once
	stopOnce sync.Once
	stop     func()
}

// StartLifecycle arms the kickoff strategy for t. kick runs at most once.
func StartLifecycle(t domain.Transport, policy domain.Policy, fallback time.Duration, kick func()) *Lifecycle {
	k := chooseKickoff(t, policy, fallback)
	log.WithFields(logger.Fields{
		"at":       "StartLifecycle",
		"policy":   policy,
		"strategy": k.name(),
	}).Debug("arming kickoff")

	l := &Lifecycle{}
	l.stop = k.start(func() { l.once.Do(kick) })
	return l
}

// Stop releases the kickoff subscriptions. It is safe to call repeatedly.
func (l *Lifecycle) Stop() {
	l.stopOnce.Do(func() {
		if l.stop != nil {
			l.stop()
		}
	})
}
