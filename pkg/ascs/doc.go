// Package ascs implements the wire format of the Audio Stream Control Service.
//
// It covers the ASE Control Point commands written by the client, the
// control point response notification returned by the server, and the ASE
// characteristic value (notified on every ASE state transition) whose
// additional parameters depend on the new state. DecodeStateParams returns a
// distinct Go type per state so callers can switch on the concrete type.
//
// See Audio Stream Control Service 1.0, Sections 4 and 5.
package ascs
