// Package device holds the unicast client's view of its peers: ASEs, the
// devices that own them, and the groups of devices that stream together over
// one CIG.
//
// Ownership is strictly top down. A Groups table owns Groups, a Group owns
// its Devices, and a Device owns a fixed array of ASEs created at discovery.
// Nothing points back up; callers resolve an ASE's device or group through
// lookups by address, connection id or CIS handle.
//
// The CIG/CIS coordinator lives on Group: it generates CIS ids for an
// audio-set configuration, binds them to ASEs, and maps controller connection
// handles back onto ASEs.
//
// None of the types are safe for concurrent mutation. They are meant to be
// driven from a single execution context.
package device
