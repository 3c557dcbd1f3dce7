// Package bundle reads and writes the portable transport format used for
// offline transfer: a directory holding one manifest.json plus a files/
// directory of binaries named {sourceFileId}_{sanitizedOriginalName}.
//
// Export walks a collection, discovers every file-shaped value, and copies
// each referenced binary exactly once. Import uploads the bundled binaries,
// rebuilds the file id map from the filename pattern, and feeds the manifest
// items through the same sanitization and reconciliation path as a live
// import.
package bundle
