// Package testsupport provides an in-memory stub of a content-management
// instance served over httptest, plus small helpers shared by package tests.
//
// The stub implements the subset of the data API the sync engine consumes:
// items with eq/contains filters, file metadata, asset download, multipart
// upload, folders, field and relation schema metadata, and token checks.
// Tests seed state directly on the Instance and inspect it afterwards.
package testsupport
