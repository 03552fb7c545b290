// Package database opens the SQLite file shared by the sqlite status store and
// the sqlite stage queues. It applies the connection pragmas, creates the
// versioned schema on first use, and retries statements that hit SQLITE_BUSY
// while another worker process holds the write lock.
package database
