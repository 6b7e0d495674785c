// Package model defines the provider-agnostic text generation interface used
// by LLM-backed agents.
//
// Providers (OpenAI, Anthropic) implement Model in their own subpackages so
// agents stay decoupled from vendor SDKs. MockModel serves tests and examples.
package model
