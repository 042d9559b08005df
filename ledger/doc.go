// Package ledger implements the invalidation ledger: short-lived Redis
// markers that say "this session id is being destroyed right now".
//
// A marker is written before a session's store blob and registry record are
// deleted, and expires on its own a few seconds later. Requests that read
// the session while the deletion is in flight see the marker and are
// rejected even though the other stores have not caught up yet.
package ledger
