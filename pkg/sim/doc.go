// Package sim simulates the peripheral and controller side of LE Audio
// unicast streaming.
//
// Peripheral implements an ASCS server with PACS characteristics. It serves
// control point writes, typically from a gatt.ServerBearer, and emits
// notifications through its Notify function.
//
// Controller implements iso.Controller. It allocates CIS handles, keeps CIS
// and data path state, and tells attached peripherals when their CISes go
// up or down so sink ASEs start streaming the way a real server does.
package sim
