// Package normalize cleans raw catalog fields into values the reconciler can
// join on.
//
// Every function here is pure: it never mutates its input and never fails.
// Unparsable prices become null rather than an error or a zero value, and an
// absent name yields the empty join key.
package normalize
