// Package verify authenticates the local identity to a peer over a
// transport and remembers peers whose short code both humans confirmed.
package verify
