// Package store is the SQLite persistence layer: users, chats and their
// memberships, messages, media metadata and reactions. Media blob bytes
// go through a pluggable BlobStore so they can live either in the
// database or in S3.
//
// Timestamps are stored as integer unix milliseconds, matching the wire
// representation used everywhere else in the system.
package store
