// Package access implements the access-request and approval workflow that
// gates the Deal Room, Portfolio OS and Tech Demo areas.
//
// There is exactly one canonical rule set: requests are upserted by
// (email, resource type), admins move them between pending, approved and
// denied, and access checks consult the configured allowlist before the
// store. Notifications and lead events are fire-and-forget and never fail
// a mutation.
//
// The service layer depends on the Repository interface defined in
// repository.go. It never imports net/http or a storage driver directly.
package access
