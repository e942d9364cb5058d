// Package observability records scheduler events in a JSON Lines log,
// derives usage metrics from that log on demand, and evaluates deadline
// alerts over the pending tasks.
package observability
