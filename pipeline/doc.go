// Package pipeline orchestrates one outbound API request end to end:
// rate limiting, cache lookup, authentication, retry-wrapped transport,
// error classification, cache write-back, invalidation, and a single
// structured log event per call.
//
// Every provider façade owns one Client. The Client is explicitly
// constructed and owns all of its collaborators; there are no package
// level singletons.
package pipeline
