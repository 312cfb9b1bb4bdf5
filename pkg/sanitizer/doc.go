// Package sanitizer normalizes user-supplied text before validation and
// storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input yields an empty string rather than an
// error so the validator can report it.
//
// Normalization includes:
//   - Names and venues: collapse whitespace, trim leading/trailing spaces
//   - Descriptions: trim, keep line breaks
//   - Emails: trim, lowercase
//   - URLs: default to https, lowercase the host, drop tracking parameters
package sanitizer
