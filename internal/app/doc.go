// Package app wires application dependencies for the CLI.
//
// LoadConfig reads ~/.sascheck/config.yaml, SASCHECK_* environment variables
// and any bound flags through viper. NewWire builds the concrete stores,
// relay client and services from the result, and App exposes the handful
// of operations the commands need.
package app
