// Package supervisor is the client for the platform's supervisor and core
// APIs.
//
// The client serves three jobs: listing installed addons with their platform
// version constraints, discovering pending updates through addon metadata and
// update.* entities, and pushing results back to the platform as persistent
// notifications and sensor states. All calls carry the supervisor token as a
// bearer credential and are traced through otelhttp.
package supervisor
