// Package accountstore persists proxy user credentials in a single-file
// SQLite store. Seeding is idempotent: the users table's primary key plus
// a conflict-ignoring insert make it safe to re-run the installer, or to
// run two installers concurrently, against the same store file.
package accountstore
