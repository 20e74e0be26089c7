// Package service orchestrates the sentry's scan and update-check cycles.
//
// A Sentry ties the pieces together: the manifest scanner finds component
// descriptors, the graph builder turns them into a snapshot (folding in addon
// metadata from the supervisor), and the snapshot is published atomically to
// the store the API reads from. Rescans run on a cron schedule and when the
// filesystem watcher sees descriptor changes; update checks run on their own
// schedule and publish their verdict as sensors and notifications.
package service
