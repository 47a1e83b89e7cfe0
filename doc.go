// Package users provides the account-management core for goliatone services:
// registration, credential verification, JWT issuance and validation,
// role-gated mutation, account lifecycle transitions (verification, lockout,
// archival) and best-effort email notifications.
//
// Account lifecycle:
//
//	pending --(email verification)--> active
//	active  --(failed login threshold)--> locked
//	locked  --(admin unlock)--> active
//	pending|active|locked --(admin delete)--> archived (terminal)
//
// The package is transport-agnostic at its core (AccountService, Policy,
// TokenService) and ships a fiber JSON surface in http_controller.go plus a
// bearer-token middleware under middleware/jwtware.
package users
