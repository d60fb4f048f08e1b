// Package zkauth authenticates a claimant without ever transmitting their
// secret: a Pedersen-commitment sigma protocol, made non-interactive with a
// Fiat-Shamir challenge bound to a server-issued single-use nonce, followed
// by a two-tier session upgrade (intent token after the identity check,
// verified token only once a second factor passes). See auth_test.go for the
// full flow.
package zkauth
