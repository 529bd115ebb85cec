// Package callers extracts outbound HTTP call expressions from source text.
//
// Each line is split into call sites (fetch, axios and verb-named wrapper
// calls) and offered to an ordered list of matchers. The first matcher that
// claims a line decides its outcome; later matchers never see it. A claimed
// call is either resolved into a caller reference or recorded as a skipped
// call with the reason it could not be resolved.
package callers
