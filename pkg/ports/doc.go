/*
Package ports defines the driven ports (interfaces) of Canopy.

These interfaces decouple the session and compile logic from external implementations,
allowing Canopy to work with various storage backends and graph sources.

# Key Interfaces

  - Store: persists and loads per-session, per-node conversation history.
  - DistributedLocker: provides distributed locking when replicas share a history backend.
  - GraphLoader: reads graph exports (e.g., from a file), optionally Watchable for reloads.
*/
package ports
