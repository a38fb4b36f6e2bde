// Package model defines the provider-agnostic completion-engine contract used
// by every pipeline stage.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function exposure (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests and offline runs (MockModel)
//
// Providers (OpenAI, Anthropic, Google, OpenAI-compatible local endpoints)
// implement the Model interface from this package so higher layers (agents,
// the pipeline executor) remain decoupled from vendor SDKs.
package model
