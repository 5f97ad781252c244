// Package iso is the boundary to the controller's isochronous channel
// support: CIG configuration, CIS establishment and ISO data paths.
//
// Every Controller method only queues the request. Completion is reported
// later through an EventHandler, which the caller is expected to route onto
// the same execution context that issued the request.
package iso
