// Package memory provides in-memory implementations of the driven stores.
// They back tests and dry runs; nothing is persisted.
package memory
