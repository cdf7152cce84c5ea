// Package agent drives the conversational loop: it invokes the language
// model and calls the perimeter guard at every stage boundary. The
// orchestrator owns the pipeline state machine and the tool registry; no
// registered tool is reachable without its gate.
package agent
