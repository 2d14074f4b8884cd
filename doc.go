// Package gate tracks the authentication session of a user, resolves the
// user's role from a record store, checks that the mandatory profile fields
// are on file, and decides access to role protected views.
//
// State:
//   - Store owns the single AuthState. Writes go through a pure Reducer that
//     returns the next state plus a list of effects (navigate, redirect,
//     notify). An EffectRunner executes the effects against a Navigator and a
//     Notifier.
//   - Writers take a Ticket with Begin before reading the facts they are
//     about to write. Commit drops the state change of any ticket that is no
//     longer the latest, so a slow Initialize can not overwrite a later
//     SIGNED_OUT notification.
//   - Loading is a hold counter. The store starts with one boot hold that
//     Initialize releases; every user action holds while it runs.
//
// Roles:
//   - Role is a closed set with RoleNone as the unresolved value. RoleResolver
//     fails closed: lookup errors, missing records and unknown role strings
//     all resolve to RoleNone, and Guard sends such users to the login page.
//
// Activity sinks:
//   - ActivitySink receives login, logout, registration, password reset,
//     OAuth and profile completion events. Sinks run best-effort (errors are
//     logged).
//
// The gate is a client side convenience. The data layer behind it must
// enforce the same policy.
package gate
