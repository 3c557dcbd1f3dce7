// Package value models raw CMS records as tagged variants so the sanitizer,
// file transfer engine, and reconciler can consume payload fields without
// repeated ad hoc type probing.
//
// Classification happens once at ingestion: scalars stay primitives, objects
// carrying an id become references, arrays of id-bearing objects become
// relation lists, and entries shaped like locale sub-records become a
// translation list. Whether a given string or reference is actually a file
// is decided later by the transfer engine, which probes the source
// instance's file endpoint.
package value
