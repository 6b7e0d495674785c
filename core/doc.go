// Package core provides the foundational domain types and interfaces shared by
// every mcpagent agent. It defines:
//
//   - Config (identity and static settings of one agent instance)
//   - Message (the immutable unit-of-work envelope)
//   - Response (the immutable result envelope)
//   - Status (the closed lifecycle enumeration)
//   - Handler (the hooks a concrete agent plugs into the lifecycle core)
//
// The package keeps lifecycle and dispatch logic out of scope; see package
// agent for the state machine that consumes these types.
package core
