// Command contentsync migrates records and file attachments between two
// content-management instances, live or via offline bundles.
package main
