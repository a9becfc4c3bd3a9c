/*
Package domain contains the core domain models of Canopy.

It defines the worker hierarchy a graph compiles into, the graph document the compiler
consumes, and the conversation records persisted per session. This package is kept free of
I/O and persistence concerns.

# Key Entities

  - WorkerNode: a closed variant over *Agent and *Supervisor.
  - GraphDocument: the indexed form of a node-link graph (records, classes, connections).
  - Workflow: an immutable compiled hierarchy with an O(1) name index.
  - Message / MessageTree: branching conversation history of one node in one session.
  - Event: intermediate progress emitted while a chat invocation runs.
*/
package domain
