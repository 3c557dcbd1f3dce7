// Package sanitize reduces raw source records to payloads the target
// instance will accept.
//
// The sanitizer drops server-managed and schema-unknown fields, coerces
// references to plain ids, fills required-field defaults, normalizes
// translation sub-records (fresh ids, unwrapped rich-text values, target
// supported locale codes), and nulls dangling single references so one bad
// foreign key cannot reject an otherwise valid item.
package sanitize
