// Package normalisers provides implementations of the Normaliser interface
// for the corpus file formats. Each normaliser knows how to extract plain
// text from specific file extensions.
//
// Normalisers are registered with the Registry at startup.
package normalisers
