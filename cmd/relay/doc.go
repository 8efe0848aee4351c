// Package main runs the store-and-forward relay used by durable sascheck
// runs. Each room has one mailbox per role; a peer posts into the other
// role's mailbox and polls its own. The relay never sees anything secret:
// commitments, offers and reveals are all safe to publish.
//
// HTTP API
//
//	POST /rooms/{room}/{role}
//	    Append the raw frame in the body to the mailbox. Returns {"seq": N}.
//
//	GET /rooms/{room}/{role}?after=N
//	    Return up to 64 frames with sequence numbers greater than N.
//
//	POST /rooms/{room}/{role}/ack {"upTo": N}
//	    Drop every frame with a sequence number up to and including N.
//
// Behaviour
//
//   - State lives in a bbolt file (--db) and survives restarts.
//   - Each client address is rate limited (--rate, --burst); excess requests
//     get 429.
//   - Frames larger than 64 KiB are refused with 413.
//   - Every request is written to the access log.
//   - The default listen address is :8080. Flags may also be given as
//     SASCHECK_RELAY_* environment variables.
package main
