package sim

import (
	"net"

	"github.com/pion/logging"

	"github.com/backkem/leaudio/pkg/gatt"
)

// Serve exposes the peripheral on the server end of an ATT link: writes
// reach HandleWrite and notifications go out on the bearer. Close the
// returned bearer to take the link down.
func (p *Peripheral) Serve(conn net.Conn, loggerFactory logging.LoggerFactory) *gatt.ServerBearer {
	b := gatt.NewServerBearer(gatt.ServerBearerConfig{
		Conn:          conn,
		OnWrite:       p.HandleWrite,
		LoggerFactory: loggerFactory,
	})
	address := p.address
	p.SetNotify(func(handle uint16, value []byte) {
		if err := b.Notify(handle, value); err != nil && p.log != nil {
			p.log.Debugf("%s: notify 0x%04x: %v", address, handle, err)
		}
	})
	return b
}
