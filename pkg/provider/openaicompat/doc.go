// Package openaicompat implements provider.Provider against an
// OpenAI-compatible Chat Completions backend: request serialization,
// response parsing, SSE chunk streaming, tool call argument buffering,
// and error mapping (spec.md §4.2, §6). It is the one upstream protocol
// spec.md names — there is no adapter-per-backend layer above it.
package openaicompat
