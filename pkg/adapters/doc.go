// Package adapters provides provider-agnostic LLM adapter interfaces, the
// capability taxonomy, and the provider registry.
//
// Subpackages:
//   - openai
//   - anthropic
//   - gemini
//   - local
//   - builtin (registry of the four above)
package adapters
