// Package login defines the saved-credential record and the pure predicates
// that decide whether a record may be stored.
//
// Validation never touches storage: callers pass in the records a candidate
// has to be unique against. The checks run in a fixed order so that a record
// with several problems always reports the same reason:
//
//  1. empty hostname
//  2. empty password
//  3. both or neither of httpRealm/formSubmitUrl
//  4. illegal field values (NUL, line breaks, malformed URLs)
//  5. duplicate (hostname, username, target)
package login
