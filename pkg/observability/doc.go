/*
Package observability provides the Prometheus metrics of Canopy.

Compilations, capability failures, chat invocations, intermediate events and dropped frames
are counted on a dedicated registry that the HTTP adapter serves under /metrics.
*/
package observability
