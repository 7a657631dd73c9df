// Package authcore implements the authentication and session lifecycle engine
// behind a single-operator dashboard: credential verification, an optional
// TOTP second factor, Redis-backed opaque sessions, and an out-of-band
// password-reset path driven by a filesystem marker.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types. Session and challenge persistence lives in the session
// sub-package, secret-at-rest protection in secretbox, password hashing in
// password, and the reset-marker primitive in marker. The engine owns
// orchestration only; user records are reached exclusively through the
// caller-supplied [UserStore].
//
// # What this package must NOT do
//
//   - Emit a password hash or a decrypted TOTP seed in any response, audit
//     event, or log line (the one-time provisioning response excepted).
//   - Retry infrastructure failures internally; retry policy belongs to the
//     transport layer.
//   - Read configuration from ambient process state. Demo mode and secret
//     material are injected at construction.
package authcore
