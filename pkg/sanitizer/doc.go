// Package sanitizer normalizes free-text input before validation and
// persistence. Strategies are composable; each takes and returns a string so
// callers can build custom pipelines.
package sanitizer
