// Package memory provides process-local repositories for development and
// tests. Records are copied on the way in and out so callers never share
// state with the store.
package memory
