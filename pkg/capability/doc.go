/*
Package capability resolves capability descriptors into live MCP toolsets.

A Registry maps descriptor types (sse, http, stdio) to transport factories. Resolving a
descriptor connects to the server, performs the MCP handshake and converts the advertised
tools into eino tool descriptions an agent can hand to its chat model.
*/
package capability
