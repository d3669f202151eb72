// Package admin aggregates visitor metrics and listings for the operator
// dashboard and exports point-in-time snapshots of every collection.
//
// Approve, deny, grant and revoke live in the access service; the HTTP
// layer calls it directly behind the same admin credential.
package admin
