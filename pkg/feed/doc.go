// Package feed pulls incremental spend from external billing sources and
// delivers it to the governor.
//
// A Feed reports cost samples (service, operation kind, amount) since its
// previous fetch. HTTPFeed speaks a small JSON relay format suitable for
// fronting provider billing APIs (cloud cost exports, LLM usage
// endpoints); StaticFeed serves fixed samples for tests and manual runs.
//
// The Poller drives all configured feeds on an interval. An unreachable
// feed is a warning and a zero delta for that cycle, never a crash: the
// warning exists so a silent feed outage is not mistaken for zero spend.
package feed
