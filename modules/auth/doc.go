// Package auth verifies the identity provider's session tokens and exposes
// the authenticated user id through the request context. Identity itself
// (registration, sign-in, password handling) lives in the external
// provider; this package only consumes its HS256-signed JWTs.
package auth
