// Package core provides the foundational content types shared across the
// ArchPipe pipeline. It defines the core abstractions for:
//
//   - Content (a role-attributed, ordered collection of parts)
//   - Parts (text, file attachments, function calls and responses)
//   - Identifier minting for run correlation
//
// The package intentionally keeps implementation concerns (model providers,
// stage orchestration, persistence) out of scope, exposing small value types
// so higher layers remain decoupled from vendor SDKs.
package core
