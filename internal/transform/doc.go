// Package transform holds the content transformations applied around
// fingerprinting: style compilation, minification and precompressed
// sidecars. Minification is delegated to tdewolff/minify; precompression to
// klauspost/compress.
package transform
