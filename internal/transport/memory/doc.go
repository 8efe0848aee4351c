// Package memory provides an in-process pair of connected transports.
//
// Pipe(domain.PolicyDurable) behaves like a store-and-forward relay: Send
// always succeeds and frames wait until the peer subscribes. Pipe(domain.PolicyLive)
// behaves like a direct link: it starts down, Send fails with
// domain.ErrNotConnected until Connect is called, and OnUp/OnDown report the
// link state. WithTamper lets tests rewrite frames in flight.
package memory
