// Package language normalizes user-supplied language values into the ISO
// 639-1 codes the transcription tooling expects.
//
// Conversions are backed by golang.org/x/text so spelled-out names
// ("english"), three-letter codes ("deu", "ger"), and regional tags
// ("en-US") all resolve to the same canonical code.
package language
