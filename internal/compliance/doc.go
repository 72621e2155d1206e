// Package compliance holds the business rules of the document register:
// who may see which projects, how documents move through review, how versions
// stay exclusive and how expiry is derived. Everything here works on snapshots
// passed in by the caller and never touches storage.
package compliance
