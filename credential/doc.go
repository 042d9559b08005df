// Package credential verifies username/password pairs for the login
// endpoint before a session is created.
//
// It is a deliberately small collaborator: an argon2id [Hasher] and a static
// [Directory] loaded from configuration. Deployments with a real user
// service implement [Verifier] themselves and pass it to the HTTP layer.
package credential
