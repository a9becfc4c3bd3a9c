/*
Package agent executes chat invocations over a compiled worker hierarchy.

A turn sends a node's directive, its rehydrated history and the query to an eino chat
model. Supervisors are offered one delegate_to_<child> tool per child and agents the tools
of their resolved capability servers; the executor loops while the model calls tools, then
commits the turn to the conversation. Agents with an output schema have their replies
repaired and validated before they are returned.
*/
package agent
