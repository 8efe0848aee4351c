package fsm

import (
	"github.com/samber/oops"

	"sascheck/internal/domain"
)

// State is one protocol state, shared by both roles.
type State string

const (
	Idle       State = "IDLE"
	WaitCommit State = "WAIT_COMMIT"
	WaitOffer  State = "WAIT_OFFER"  // receiver only
	WaitReveal State = "WAIT_REVEAL" // sender only
	SASConfirm State = "SAS_CONFIRM"
	Ready      State = "READY"
	Error      State = "ERROR"
	Mallory    State = "MALLORY"
)

// Terminal reports whether s ends the run.
func (s State) Terminal() bool {
	return s == Ready || s == Error || s == Mallory
}

// Event drives a transition.
type Event string

const (
	EventRoomFull   Event = "room_full"
	EventCommit     Event = "commit"
	EventOffer      Event = "offer"
	EventReveal     Event = "reveal"
	EventRcvConfirm Event = "rcvconfirm"
	EventRejected   Event = "rejected"
	EventError      Event = "error"
	EventBadSig     Event = "bad_sig"
	EventVerifyFail Event = "vrfy_fail"
)

// Transition records one applied event.
type Transition struct {
	Role  domain.Role `json:"role"`
	From  State       `json:"from"`
	Event Event       `json:"event"`
	To    State       `json:"to"`
}

// Changed reports whether the transition moved the machine.
func (t Transition) Changed() bool { return t.From != t.To }

// Next computes the state role moves to from from on ev.
func Next(role domain.Role, from State, ev Event) (State, error) {
	if from.Terminal() {
		return from, nil
	}
	switch ev {
	case EventError:
		return Error, nil
	case EventBadSig, EventVerifyFail, EventRejected:
		return Mallory, nil
	}

	var (
		to State
		ok bool
	)
	switch role {
	case domain.RoleSender:
		to, ok = senderNext(from, ev)
	case domain.RoleReceiver:
		to, ok = receiverNext(from, ev)
	default:
		return from, domain.NewError(domain.CodeBadParam, "fsm", oops.Errorf("unknown role %q", role))
	}
	if !ok {
		return from, domain.NewError(domain.CodeProtocol, "fsm",
			oops.Errorf("%s: no transition from %s on %q", role, from, ev))
	}
	return to, nil
}

func senderNext(from State, ev Event) (State, bool) {
	switch from {
	case Idle:
		if ev == EventRoomFull {
			return WaitCommit, true
		}
	case WaitCommit:
		if ev == EventCommit {
			return WaitReveal, true
		}
	case WaitReveal:
		if ev == EventReveal {
			return SASConfirm, true
		}
	case SASConfirm:
		if ev == EventRcvConfirm {
			return Ready, true
		}
	}
	return from, false
}

func receiverNext(from State, ev Event) (State, bool) {
	switch from {
	case Idle:
		if ev == EventRoomFull {
			return WaitCommit, true
		}
	case WaitCommit:
		if ev == EventCommit {
			return WaitOffer, true
		}
	case WaitOffer:
		if ev == EventOffer {
			return SASConfirm, true
		}
	case SASConfirm:
		if ev == EventRcvConfirm {
			return Ready, true
		}
	}
	return from, false
}

// Machine is one role's current state. It is not safe for concurrent use;
// an orchestrator owns it exclusively.
type Machine struct {
	role  domain.Role
	state State
}

// New returns a machine for role in IDLE.
func New(role domain.Role) *Machine {
	return &Machine{role: role, state: Idle}
}

// Role returns the machine's role.
func (m *Machine) Role() domain.Role { return m.role }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Apply moves the machine on ev. On error the state is unchanged.
func (m *Machine) Apply(ev Event) (Transition, error) {
	to, err := Next(m.role, m.state, ev)
	if err != nil {
		return Transition{}, err
	}
	t := Transition{Role: m.role, From: m.state, Event: ev, To: to}
	m.state = to
	return t, nil
}
