// Package message defines the wire form of an invocation batch.
//
// A Batch is what the transport hands to the bridge for one client round trip.
// Each argument is encoded on its own so the bridge can decode it straight into
// the parameter type of the resolved method.
package message

// Call is the serialized form of one invocation.Record.
type Call struct {
	TargetID  string   // Addressed target, e.g. "T1"
	Interface string   // RPC interface name, e.g. "Clickable"
	Method    string   // Method name, e.g. "OnClick"
	Args      [][]byte // One codec-encoded value per positional argument
}

// Batch carries the calls of one round trip, in the order they must be applied.
type Batch struct {
	Calls []Call
}
