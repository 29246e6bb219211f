package game

import (
	"time"

	"github.com/coder/quartz"
)

type timerKind int

const (
	timerBetCountdown timerKind = iota
	timerBetDeadline
	timerActionCountdown
	timerActionDeadline
	timerReveal
	timerDealer
	timerNextRound
	timerFinal
	timerClose
)

func (k timerKind) String() string {
	switch k {
	case timerBetCountdown:
		return "bet-countdown"
	case timerBetDeadline:
		return "bet-deadline"
	case timerActionCountdown:
		return "action-countdown"
	case timerActionDeadline:
		return "action-deadline"
	case timerReveal:
		return "reveal"
	case timerDealer:
		return "dealer"
	case timerNextRound:
		return "next-round"
	case timerFinal:
		return "final"
	case timerClose:
		return "close"
	default:
		return "unknown"
	}
}

// armedTimer is one scheduled callback. It only runs while it is still the
// room's current timer of its kind and the room's epoch has not moved.
type armedTimer struct {
	timer *quartz.Timer
	epoch uint64
	fire  func()
}

// deadline describes the timers owned by a phase that has a window.
type deadline struct {
	countdown timerKind
	event     EventType
	seconds   int
	expiry    timerKind
	expire    func()
}

func (r *Room) deadlineFor(phase Phase) (deadline, bool) {
	switch phase {
	case PhaseBetting:
		return deadline{timerBetCountdown, EventBetCountdown, r.rules.BetSeconds, timerBetDeadline, r.betDeadline}, true
	case PhaseAction:
		return deadline{timerActionCountdown, EventActionCountdown, r.rules.ActionSeconds, timerActionDeadline, r.actionDeadline}, true
	default:
		return deadline{}, false
	}
}

// armDeadline starts the countdown and the hard deadline for the current
// phase. Callers hold r.mu.
func (r *Room) armDeadline() {
	d, ok := r.deadlineFor(r.phase)
	if !ok {
		return
	}
	r.countdown(d.countdown, d.event, d.seconds, nil)
	r.arm(d.expiry, time.Duration(d.seconds)*time.Second+r.rules.DeadlineGrace, d.expire)
}

// arm schedules fn after d on the room clock, replacing any timer of the
// same kind. Callers hold r.mu; fn runs with r.mu held.
func (r *Room) arm(kind timerKind, d time.Duration, fn func()) {
	if prev, ok := r.timers[kind]; ok {
		prev.timer.Stop()
	}
	at := &armedTimer{epoch: r.epoch}
	at.fire = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.epoch != at.epoch || r.timers[kind] != at {
			r.logger.Debug("Ignoring stale timer", "timer", kind, "epoch", at.epoch, "current", r.epoch)
			return
		}
		delete(r.timers, kind)
		fn()
	}
	at.timer = r.clock.AfterFunc(d, at.fire, "room", kind.String())
	r.timers[kind] = at
}

// clearTimers stops every armed timer and starts a new epoch, so callbacks
// already queued behind the lock become no-ops.
func (r *Room) clearTimers() {
	for kind, at := range r.timers {
		at.timer.Stop()
		delete(r.timers, kind)
	}
	r.epoch++
}

// countdown emits event with the seconds remaining now and once per second
// until it reaches zero, then calls done if set.
func (r *Room) countdown(kind timerKind, event EventType, seconds int, done func()) {
	r.emit(event, Countdown{SecondsRemaining: seconds})
	if seconds <= 0 {
		if done != nil {
			done()
		}
		return
	}
	r.arm(kind, time.Second, func() {
		r.countdown(kind, event, seconds-1, done)
	})
}
