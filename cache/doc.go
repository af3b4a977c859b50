// Package cache holds short-lived results keyed by credential digest.
//
// The verifier uses it to skip repeated signature checks for a credential
// it has already accepted. Entries never outlive the credential: callers
// pass the credential's remaining lifetime as a deadline and the Policy
// clamps the TTL to it.
//
// Keys are derived with Key, so the credential itself is never held as a
// map key.
package cache
