// Package cli implements the mcpagent command line: hosting one agent over
// stdin/stdout and printing build information.
package cli
