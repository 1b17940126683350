// Package notifications delivers reconcile and install events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Watch mode reports
// pass failures and tree changes; the install coordinator reports completed
// and failed installs.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
