// Package bridge relays the events of a running chat invocation from a worker goroutine
// to the goroutine serving the connection, preserving order and bounding both the number
// of concurrent computations and how far a worker may run ahead of delivery.
package bridge
