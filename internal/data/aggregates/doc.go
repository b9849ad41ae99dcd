// Package aggregates owns transaction boundaries, optimistic locking and
// error classification for catalog aggregate writes. Table-level access lives
// in internal/data/repos.
package aggregates
