// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (policies, roles, error codes, identities) and
// contracts (transports, stores, services) only.
package domain
