// Package identity provides the account and session lifecycle primitives
// behind an authentication service: registration with deferred email
// verification, credential login that issues signed session assertions,
// single-use store-backed verification and reset tokens, federated
// identity resolution, and role-based authorization.
//
// Collaborators are consumed through narrow interfaces so products can
// swap them out:
//   - RepositoryManager exposes the Accounts and Tokens repositories and
//     transaction scoping over a bun.DB.
//   - Notifier delivers verification and reset secrets out of band. The
//     default implementation only logs, real transports plug in.
//   - AssertionVerifier adapts an external provider callback into a
//     FederatedProfile; verifiers are injected per provider name, there
//     is no process-wide registration.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Auther and
//     the lifecycle commands to describe registration, login, verification
//     and password reset events. Sinks run best-effort (errors are logged)
//     so you can forward to a database or queue without blocking
//     authentication.
package identity
