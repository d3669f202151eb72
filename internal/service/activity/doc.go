// Package activity records visitor page views, sign-ins and funnel
// progress against a per-visitor document.
//
// Every write is a read-modify-write of one document wrapped in a bounded
// retry. There is no version check, so concurrent writers for the same
// visitor race and the last write wins.
package activity
