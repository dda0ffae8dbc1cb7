// Package resource bounds the memory, concurrency and IO bandwidth used by
// background jobs. Checkpoint and restore use a Controller so that copying
// index images to remote storage does not starve the foreground.
package resource
