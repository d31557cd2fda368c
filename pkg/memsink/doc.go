// Package memsink provides the durable event log the governor writes
// escalation events into.
//
// The Sink capability is {Add, Search}. Two implementations exist: an
// in-memory sink whose records live only for the process lifetime, and a
// SQLite-backed sink for durable history. The backend is selected at
// startup via configuration; consumers depend only on the Sink interface
// and never inspect the concrete type.
//
// The governor uses only Add. Search exists for the report tooling and
// for any surrounding agent code that wants to recall past survival
// events.
package memsink
