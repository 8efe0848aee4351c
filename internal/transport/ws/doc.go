// Package ws carries frames over a single websocket connection between two
// peers. One side calls Listen, the other Dial; both get a *Link that
// reports when the connection comes up and fails Send with
// domain.ErrNotConnected until it does.
package ws
