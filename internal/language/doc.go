// Package language normalizes locale codes carried by translation
// sub-records (e.g. "en-US", "de", "pt_BR") against the set of codes a
// target instance supports.
package language
