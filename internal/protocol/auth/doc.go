// Package auth runs one side of the commit / offer / reveal exchange and the
// human SAS comparison that follows it.
//
// A Sender or Receiver owns a single goroutine that processes transport
// frames, phase timers and the human decision strictly one at a time. Run
// blocks until the state machine reaches READY, ERROR or MALLORY, the
// context is cancelled, or Close is called. Subscriptions and timers are
// released exactly once when it returns.
package auth
