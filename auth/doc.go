// Package auth verifies bearer credentials and evaluates per-operation
// role requirements.
//
// A request flows through four pieces:
//
//   - KeyRegistry maps a key id to a verification key. Entries configured
//     with private EC material have their public key derived once, on first
//     use or during Initialize.
//   - ExtractCredential and ParseHeader read the credential from a request
//     and decode its unprotected header to select a key.
//   - Verifier checks signature and expiry and produces an Identity, or an
//     *Error naming one of InvalidTokenHeader, UnknownKeyID or InvalidToken.
//     Expired credentials may be renewed by an optional Refresher.
//   - Policy evaluates an operation's Requirement set against the Identity,
//     denying with Unauthorized or Forbidden.
//
// Failures are reported through a FailureSink. Raise returns them as
// errors; an *ErrorList records them and lets the caller carry on
// anonymously.
package auth
