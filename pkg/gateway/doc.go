// Package gateway implements auth.Gateway against a token-grant style
// identity provider HTTP API (password and refresh-token grants, signup,
// logout, recovery, profile endpoints).
//
// The client's one structural job is error translation: every transport or
// protocol failure is wrapped over a sentinel from the auth package, so the
// lifecycle manager classifies errors by identity instead of sniffing
// message strings. Federated sign-in builds authorization URLs either from
// a registered oauth2.Config or from the provider's /authorize endpoint.
package gateway
