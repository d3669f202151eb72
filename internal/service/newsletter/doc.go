// Package newsletter manages newsletter sign-ups. A subscriber is created
// once per normalized email and never modified.
package newsletter
