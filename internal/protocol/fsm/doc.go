// Package fsm holds the two transition tables that enforce protocol order.
//
// Sender:
//
//	IDLE -room_full-> WAIT_COMMIT -commit-> WAIT_REVEAL -reveal-> SAS_CONFIRM -rcvconfirm-> READY
//	                                                            SAS_CONFIRM -rejected--> MALLORY
//
// Receiver:
//
//	IDLE -room_full-> WAIT_COMMIT -commit-> WAIT_OFFER -offer-> SAS_CONFIRM -rcvconfirm-> READY
//	                                                          SAS_CONFIRM -rejected--> MALLORY
//
// Before the table is consulted, "error" forces ERROR and "bad_sig",
// "vrfy_fail" or "rejected" force MALLORY. READY, ERROR and MALLORY absorb every
// further event. Any other event with no entry is a protocol violation: Apply
// returns a CodeProtocol error and leaves the state unchanged.
//
// The package does no logging; callers observe transitions through the
// Transition values Apply returns.
package fsm
