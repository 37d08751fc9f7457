// Package models defines the core domain models for subpool.
//
// # Models
//
//   - User: a registered account
//   - Group: a subscription-sharing group run by an administrator
//   - Membership: a user's paid slot within a group
//   - Complaint: a formal dispute opened by a member against a group admin
//   - ComplaintMessage, ComplaintEvidence: append-only complaint artifacts
//   - CancellationRequest: the computed outcome of a cancellation eligibility check
//
// # Design Principles
//
// 1. **Closed status enums**: every status field is a named type whose values are
// produced only by the Parse helpers and mutated only through the transition
// tables in this package. Invalid strings never reach the database.
//
// 2. **Avoid circular references**: entities reference each other by ID strings,
// never by pointers. Memberships and complaints are associated by
// (user ID, group ID) lookup.
//
// 3. **Time as data**: timestamps are time.Time in memory and Unix seconds at
// rest. Deadlines are computed once at creation and persisted, so the scan loop
// compares plain columns instead of re-deriving policy arithmetic.
package models
