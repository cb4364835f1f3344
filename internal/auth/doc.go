// Package auth implements the Grünbeck cloud sign-in.
//
// The cloud fronts its accounts with Azure B2C, and the vendor app logs
// in by driving the hosted browser flow headlessly: an authorize page is
// fetched and scraped for its CSRF token, transaction id, policy and
// tenant, credentials are posted to the SelfAsserted endpoint, the
// confirmation redirect is read literally for the authorization code,
// and the code is exchanged for tokens with a PKCE verifier.
//
// Flow runs that four-step handshake once. Manager sits above it and
// hands out access tokens for the lifetime of a client: it logs in
// lazily, serves cached tokens while they are fresh, refreshes them
// through the token endpoint when they near expiry, and falls back to a
// full re-login when the refresh grant is rejected.
package auth
