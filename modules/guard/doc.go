// Package guard gates access to pro features from evaluated subscription
// status and renders the matching warning state.
//
// The display state machine mirrors what the web client shows: loading,
// admin bypass, blocked, grace-period warning, expiring-soon warning, or
// normal, evaluated in exactly that order. The same decision drives the
// HTTP middleware that protects annotation endpoints and the poller that
// keeps a client session's status fresh.
//
// Uncertainty always fails closed: a profile fetch error produces a
// blocked decision, never access.
package guard
