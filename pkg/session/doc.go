/*
Package session implements session management and history orchestration.

A Manager creates and deletes sessions, serializes history appends per (session, node) and
optionally across replicas through a DistributedLocker. Rehydrate loads the history of every
persisting node of a compiled workflow into a Conversation, the per-invocation view that the
executor reads from and commits turns to.
*/
package session
