// Package agent binds role specifications to the shared completion engine
// and executes single-stage invocations. The package has two concerns:
//
//  1. Factory – resolves a role.Spec and produces an ephemeral Agent with the
//     role's instructions and, for grounded roles, the documentation search
//     tool attached.
//  2. Agent.Invoke – one stage turn: streams model responses to the caller
//     and transparently runs the tool round-trip loop (execute function
//     calls, append results, re-invoke) until the model answers with text.
//
// Agents are created per stage and hold no cross-invocation state; the
// pipeline package owns sequencing, prompt composition and persistence.
package agent
