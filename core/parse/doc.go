// Package parse turns raw model replies into usable values. Models wrap code
// in markdown fences, prepend prose, or return a JSON envelope instead of the
// bare script; the helpers here strip that packaging.
//
// [ExtractScript] is what the script nodes use. [ParseStringAs] converts a
// reply into any Go type, repairing malformed JSON with jsonrepair before
// giving up.
package parse
