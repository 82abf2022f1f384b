// Package sanitizer normalizes guest-supplied data before validation and storage.
//
// Normalization functions are idempotent. Invalid input is reported through a
// boolean or an empty result rather than an error.
//
// Normalization includes:
//   - Mobile numbers: canonical +639XXXXXXXXX form for identity matching, and a
//     lenient 09XX XXX XXXX display form
//   - Names: collapse whitespace, trim leading/trailing spaces
//   - Free text (reasons, annotations, references): strip control characters, cap length
//   - Name search: build a case-insensitive, token-ordered search pattern
package sanitizer
