// Package providers exposes façades over the Amazon marketing API
// families: Advertising, DSP, Brand Analytics, Attribution, and Search
// Performance. Each façade owns one pipeline.Client configured with the
// family's rate limit table, cache TTL table, and retry policy, and
// performs only light request shaping; endpoint business schemas stay
// with the caller.
package providers
