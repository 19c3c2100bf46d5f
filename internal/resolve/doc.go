// Package resolve implements the secondary cycle-resolution pass.
//
// # Why Resolve Exists
//
// After the main pass a cycle group lives in one unit, the carrier's. The
// secondary pass splits the embedded members out of that unit into units of
// their own, so every member ends up addressable by its own unit path. It
// operates on an isolated copy of the carrier unit, never on the store the
// main pass is still holding.
//
// # Parent and Child
//
// The parent sends a typed Command to a child and waits for its ExitStatus:
//   - **ExecRunner** launches a fresh process of the same binary, writes the
//     command as JSON to its stdin and enforces a hard timeout; the child is
//     killed when the timeout expires
//   - **InProcessRunner** calls Execute directly, for tests and for hosts that
//     do not want a subprocess
//
// The child side is Execute. It exits with StatusNotFound when the carrier
// is not in the unit and with StatusNotImplemented for unknown actions.
package resolve
