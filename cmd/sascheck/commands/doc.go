// Package commands defines the sascheck CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - fingerprint    Print the identity fingerprint
//   - send           Authenticate to a peer as the sender
//   - recv           Authenticate to a peer as the receiver
//   - peers          List verified peers
//
// # Implementation
//
// The root command loads configuration through viper (file, SASCHECK_*
// environment, flags) and builds the dependency graph before any
// subcommand runs. send and recv print the short code and ask on stdin
// whether the peer's screen shows the same digits.
package commands
