package auth

import (
	"time"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/fsm"
)

// PhaseTimer bounds the phase currently being waited on. At most one phase
// is armed; arming replaces it. Two callbacks are scheduled per window: at
// half the window the last sent frame is resent once, and at the full
// window onTimeout receives the phase's code. The resend never times out
// on its own.
//
// Callbacks are handed to post so they run on the owner's goroutine. Arm,
// Clear and the posted callbacks must all be called from that goroutine.
type PhaseTimer struct {
	windows   func(fsm.State) time.Duration
	post      func(func())
	resend    func()
	onTimeout func(domain.Code)

	gen    uint64
	phase  fsm.State
	code   domain.Code
	timers []*time.Timer
}

// NewPhaseTimer returns an idle timer. resend may be nil.
func NewPhaseTimer(windows func(fsm.State) time.Duration, post func(func()), resend func(), onTimeout func(domain.Code)) *PhaseTimer {
	return &PhaseTimer{windows: windows, post: post, resend: resend, onTimeout: onTimeout}
}

// Arm bounds phase by its configured window. A zero window arms nothing.
func (p *PhaseTimer) Arm(phase fsm.State, code domain.Code) {
	p.ArmWindow(phase, code, p.windows(phase))
}

// ArmWindow bounds phase by d instead of the phase's configured window.
// A d of zero or less clears the timer and arms nothing.
func (p *PhaseTimer) ArmWindow(phase fsm.State, code domain.Code, d time.Duration) {
	p.Clear()
	if d <= 0 {
		return
	}
	p.phase, p.code = phase, code
	gen := p.gen

	if p.resend != nil {
		p.timers = append(p.timers, time.AfterFunc(d/2, func() {
			p.post(func() {
				if p.gen == gen {
					p.resend()
				}
			})
		}))
	}
	p.timers = append(p.timers, time.AfterFunc(d, func() {
		p.post(func() {
			if p.gen != gen {
				return
			}
			code := p.code
			p.Clear()
			p.onTimeout(code)
		})
	}))
}

// Clear disarms the current phase. Callbacks already posted for it are
// ignored when they run.
func (p *PhaseTimer) Clear() {
	p.gen++
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.phase, p.code = "", ""
}

// Armed returns the phase being bounded, if any.
func (p *PhaseTimer) Armed() (fsm.State, bool) {
	return p.phase, p.phase != ""
}
