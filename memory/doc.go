// Package memory holds the conversation data model and its persistence.
//
// Data model:
//   - Message: role (user/model) plus ordered Parts.
//   - Part: text, inline binary, tool-call request or tool-call result.
//   - Conversation: transcript, running cost and per-call usage records.
//
// Persistence:
//   - JSON wire form with explicit part tags; binary payloads are base64 at this boundary only.
//   - Backends: FileStore (one file per conversation), SQLiteStore, MemoryStore (fallback).
package memory
