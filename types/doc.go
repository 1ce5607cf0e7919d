// Package types holds the interfaces and sentinel errors shared between the
// rxfn runtime and its internal packages.
//
// The root package re-exports everything here through type aliases, so users
// normally never import this package directly.
package types
