// Package relay is the store-and-forward path for durable sessions.
//
// The server keeps one mailbox per room and role in a bbolt database:
//
//	POST /rooms/{room}/{role}          append a frame to role's mailbox
//	GET  /rooms/{room}/{role}?after=N  frames with sequence > N
//	POST /rooms/{room}/{role}/ack      {"upTo": N} drops frames <= N
//
// The relay never interprets frames. Requests are rate limited per client
// address and bodies are capped at MaxFrameSize.
//
// Mailbox is the client side. It implements domain.Transport: Send queues
// locally and a background loop flushes to the relay on a fixed backoff,
// while another loop polls the caller's own mailbox and acknowledges what
// it delivered.
package relay
