package sim

import (
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/pacs"
)

// Attribute handles of a simulated peripheral. ASE characteristics start at
// firstAseHandle, two handles each (value and CCCD).
const (
	firstAseHandle        uint16 = 0x0010
	controlPointHandle    uint16 = 0x0080
	sinkPACHandle         uint16 = 0x0090
	sinkLocationsHandle   uint16 = 0x0092
	sourcePACHandle       uint16 = 0x0094
	sourceLocationsHandle uint16 = 0x0096
	availableHandle       uint16 = 0x0098
	supportedHandle       uint16 = 0x009A
)

// DefaultPreferences are the QoS preferences reported in Codec Configured.
var DefaultPreferences = audio.QoSPreferences{
	SupportsUnframed:              true,
	PreferredPHY:                  audio.PHY2M,
	PreferredRetransmissionNumber: 2,
	MaxTransportLatency:           100,
	PresentationDelayMin:          10000,
	PresentationDelayMax:          40000,
	PreferredPresentationDelayMin: 20000,
	PreferredPresentationDelayMax: 40000,
}

// PeripheralConfig configures a Peripheral.
type PeripheralConfig struct {
	Address string

	// Sinks and Sources are the ASE counts per direction.
	Sinks   int
	Sources int

	// Locations is reported for both directions.
	Locations audio.Location

	Available audio.DirectionalContexts
	Supported audio.DirectionalContexts

	// CacheCodecConfig makes released ASEs return to Codec Configured
	// instead of Idle.
	CacheCodecConfig bool

	// Preferences default to DefaultPreferences.
	Preferences *audio.QoSPreferences

	// Notify sends a notification to the client.
	Notify func(handle uint16, value []byte)

	LoggerFactory logging.LoggerFactory
}

type ase struct {
	id     uint8
	dir    audio.Direction
	handle uint16

	state    ascs.State
	codec    audio.CodecID
	config   []byte
	cigID    uint8
	cisID    uint8
	qos      audio.QoS
	metadata []byte
}

type cisKey struct {
	cig, cis uint8
}

// Peripheral is a simulated ASCS and PACS server. It is safe for
// concurrent use.
type Peripheral struct {
	address string
	cache   bool
	prefs   audio.QoSPreferences
	notify  func(handle uint16, value []byte)
	log     logging.LeveledLogger

	mu        sync.Mutex
	ases      []*ase
	cisUp     map[cisKey]bool
	locations audio.Location
	available audio.DirectionalContexts
	supported audio.DirectionalContexts
	writes    []ascs.Opcode
}

// NewPeripheral creates a peripheral with all ASEs Idle.
func NewPeripheral(config PeripheralConfig) *Peripheral {
	p := &Peripheral{
		address:   config.Address,
		cache:     config.CacheCodecConfig,
		prefs:     DefaultPreferences,
		notify:    config.Notify,
		cisUp:     make(map[cisKey]bool),
		locations: config.Locations,
		available: config.Available,
		supported: config.Supported,
	}
	if config.Preferences != nil {
		p.prefs = *config.Preferences
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("sim")
	}

	handle := firstAseHandle
	add := func(n int, dir audio.Direction) {
		for i := 0; i < n; i++ {
			p.ases = append(p.ases, &ase{id: uint8(len(p.ases) + 1), dir: dir, handle: handle})
			handle += 2
		}
	}
	add(config.Sinks, audio.DirectionSink)
	add(config.Sources, audio.DirectionSource)
	return p
}

// Address returns the peripheral address.
func (p *Peripheral) Address() string {
	return p.address
}

// SetNotify replaces the notification sink.
func (p *Peripheral) SetNotify(notify func(handle uint16, value []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notify = notify
}

// Attributes returns the attribute table a client discovers.
func (p *Peripheral) Attributes() gatt.AttributeTable {
	var t gatt.AttributeTable
	for _, a := range p.ases {
		u := ascs.SinkAseUUID
		if a.dir == audio.DirectionSource {
			u = ascs.SourceAseUUID
		}
		t.Characteristics = append(t.Characteristics, gatt.Characteristic{UUID: u, ValueHandle: a.handle, CCCDHandle: a.handle + 1})
	}
	t.Characteristics = append(t.Characteristics,
		gatt.Characteristic{UUID: ascs.AseControlPointUUID, ValueHandle: controlPointHandle, CCCDHandle: controlPointHandle + 1},
		gatt.Characteristic{UUID: pacs.SinkPACUUID, ValueHandle: sinkPACHandle},
		gatt.Characteristic{UUID: pacs.SinkLocationsUUID, ValueHandle: sinkLocationsHandle},
		gatt.Characteristic{UUID: pacs.SourcePACUUID, ValueHandle: sourcePACHandle},
		gatt.Characteristic{UUID: pacs.SourceLocationsUUID, ValueHandle: sourceLocationsHandle},
		gatt.Characteristic{UUID: pacs.AvailableContextsUUID, ValueHandle: availableHandle},
		gatt.Characteristic{UUID: pacs.SupportedContextsUUID, ValueHandle: supportedHandle},
	)
	return t
}

// ReadValues returns the PACS values a client reads after discovery, keyed
// by value handle.
func (p *Peripheral) ReadValues() map[uint16][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sinkLocs, sourceLocs audio.Location
	if p.count(audio.DirectionSink) > 0 {
		sinkLocs = p.locations
	}
	if p.count(audio.DirectionSource) > 0 {
		sourceLocs = p.locations
	}
	return map[uint16][]byte{
		sinkLocationsHandle:   pacs.EncodeLocations(sinkLocs),
		sourceLocationsHandle: pacs.EncodeLocations(sourceLocs),
		availableHandle:       pacs.EncodeContexts(p.available),
		supportedHandle:       pacs.EncodeContexts(p.supported),
		sinkPACHandle:         p.pacValue(audio.DirectionSink),
		sourcePACHandle:       p.pacValue(audio.DirectionSource),
	}
}

func (p *Peripheral) pacValue(dir audio.Direction) []byte {
	b, err := pacs.EncodeRecords(p.records(dir))
	if err != nil && p.log != nil {
		p.log.Warnf("%s: %v PAC records: %v", p.address, dir, err)
	}
	return b
}

func (p *Peripheral) count(dir audio.Direction) int {
	n := 0
	for _, a := range p.ases {
		if a.dir == dir {
			n++
		}
	}
	return n
}

func (p *Peripheral) records(dir audio.Direction) []pacs.Record {
	if p.count(dir) == 0 {
		return nil
	}
	return []pacs.Record{{Codec: audio.CodecLC3}}
}

// SetAvailableContexts changes the available contexts and notifies them.
func (p *Peripheral) SetAvailableContexts(c audio.DirectionalContexts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = c
	p.send(availableHandle, pacs.EncodeContexts(c))
}

// State returns the state of an ASE.
func (p *Peripheral) State(id uint8) ascs.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.ase(id); a != nil {
		return a.state
	}
	return ascs.StateIdle
}

// Writes returns the opcodes written to the control point in order.
func (p *Peripheral) Writes() []ascs.Opcode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ascs.Opcode(nil), p.writes...)
}

// CountWrites returns how often an opcode was written.
func (p *Peripheral) CountWrites(op ascs.Opcode) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.writes {
		if w == op {
			n++
		}
	}
	return n
}

func (p *Peripheral) ase(id uint8) *ase {
	for _, a := range p.ases {
		if a.id == id {
			return a
		}
	}
	return nil
}

func (p *Peripheral) send(handle uint16, value []byte) {
	if p.notify != nil {
		p.notify(handle, value)
	}
}

func (p *Peripheral) notifyAse(a *ase) {
	st := &ascs.AseStatus{ID: a.id, State: a.state}
	switch a.state {
	case ascs.StateCodecConfigured:
		st.Params = &ascs.CodecConfiguredParams{Preferences: p.prefs, Codec: a.codec, Config: a.config}
	case ascs.StateQoSConfigured:
		st.Params = &ascs.QoSConfiguredParams{CigID: a.cigID, CisID: a.cisID, QoS: a.qos}
	case ascs.StateEnabling, ascs.StateStreaming, ascs.StateDisabling:
		st.Params = &ascs.StreamParams{CigID: a.cigID, CisID: a.cisID, Metadata: a.metadata}
	}
	if p.log != nil {
		p.log.Debugf("%s: ASE %d %v", p.address, a.id, a.state)
	}
	value, err := st.Encode()
	if err != nil {
		if p.log != nil {
			p.log.Warnf("%s: ASE %d: %v", p.address, a.id, err)
		}
		return
	}
	p.send(a.handle, value)
}

func (p *Peripheral) setState(a *ase, s ascs.State) {
	a.state = s
	p.notifyAse(a)
}

// HandleWrite serves a characteristic write; it is a gatt.WriteHandler.
func (p *Peripheral) HandleWrite(handle uint16, value []byte, _ gatt.WriteType) gatt.Status {
	if handle != controlPointHandle {
		return gatt.StatusWriteNotPermitted
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd, err := ascs.DecodeCommand(value)
	if err != nil {
		if p.log != nil {
			p.log.Warnf("%s: bad control point write: %v", p.address, err)
		}
		op := ascs.Opcode(0)
		if len(value) > 0 {
			op = ascs.Opcode(value[0])
		}
		resp := &ascs.ControlPointResponse{
			Op:      op,
			Invalid: true,
			Results: []ascs.AseResult{{Code: ascs.ResponseInvalidLength}},
		}
		p.send(controlPointHandle, resp.Encode())
		return gatt.StatusSuccess
	}
	p.writes = append(p.writes, cmd.Opcode())

	resp := &ascs.ControlPointResponse{Op: cmd.Opcode()}
	var apply []func()
	for _, id := range cmd.AseIDs() {
		res := ascs.AseResult{AseID: id}
		a := p.ase(id)
		if a == nil {
			res.Code = ascs.ResponseInvalidAseID
		} else if fn, code := p.transition(cmd, a); code != ascs.ResponseSuccess {
			res.Code = code
		} else {
			apply = append(apply, fn)
		}
		resp.Results = append(resp.Results, res)
	}

	p.send(controlPointHandle, resp.Encode())
	for _, fn := range apply {
		fn()
	}
	return gatt.StatusSuccess
}

// transition validates a command for one ASE and returns the change to
// apply after the control point response.
func (p *Peripheral) transition(cmd ascs.Command, a *ase) (func(), ascs.ResponseCode) {
	switch c := cmd.(type) {
	case *ascs.ConfigCodec:
		if a.state != ascs.StateIdle && a.state != ascs.StateCodecConfigured && a.state != ascs.StateQoSConfigured {
			return nil, ascs.ResponseInvalidTransition
		}
		for _, cc := range c.Ases {
			if cc.AseID == a.id {
				if _, err := audio.DecodeCodecConfig(cc.Config); err != nil {
					return nil, ascs.ResponseInvalidParameter
				}
				codec, cfg := cc.Codec, cc.Config
				return func() {
					a.codec, a.config = codec, cfg
					p.setState(a, ascs.StateCodecConfigured)
				}, ascs.ResponseSuccess
			}
		}

	case *ascs.ConfigQoS:
		if a.state != ascs.StateCodecConfigured && a.state != ascs.StateQoSConfigured {
			return nil, ascs.ResponseInvalidTransition
		}
		for _, qc := range c.Ases {
			if qc.AseID == a.id {
				qc := qc
				return func() {
					a.cigID, a.cisID, a.qos = qc.CigID, qc.CisID, qc.QoS
					p.setState(a, ascs.StateQoSConfigured)
				}, ascs.ResponseSuccess
			}
		}

	case *ascs.MetadataCommand:
		var meta []byte
		for _, am := range c.Ases {
			if am.AseID == a.id {
				meta = am.Metadata
			}
		}
		if c.Op == ascs.OpcodeEnable {
			if a.state != ascs.StateQoSConfigured {
				return nil, ascs.ResponseInvalidTransition
			}
			return func() {
				a.metadata = meta
				p.setState(a, ascs.StateEnabling)
				if a.dir == audio.DirectionSink && p.cisUp[cisKey{a.cigID, a.cisID}] {
					p.setState(a, ascs.StateStreaming)
				}
			}, ascs.ResponseSuccess
		}
		if a.state != ascs.StateEnabling && a.state != ascs.StateStreaming {
			return nil, ascs.ResponseInvalidTransition
		}
		return func() {
			a.metadata = meta
			p.notifyAse(a)
		}, ascs.ResponseSuccess

	case *ascs.IDCommand:
		return p.idTransition(c.Op, a)
	}
	return nil, ascs.ResponseUnspecifiedError
}

func (p *Peripheral) idTransition(op ascs.Opcode, a *ase) (func(), ascs.ResponseCode) {
	switch op {
	case ascs.OpcodeReceiverStartReady:
		if a.dir != audio.DirectionSource {
			return nil, ascs.ResponseInvalidDirection
		}
		if a.state != ascs.StateEnabling {
			return nil, ascs.ResponseInvalidTransition
		}
		return func() { p.setState(a, ascs.StateStreaming) }, ascs.ResponseSuccess

	case ascs.OpcodeDisable:
		if a.state != ascs.StateEnabling && a.state != ascs.StateStreaming {
			return nil, ascs.ResponseInvalidTransition
		}
		if a.dir == audio.DirectionSink {
			return func() { p.setState(a, ascs.StateQoSConfigured) }, ascs.ResponseSuccess
		}
		return func() { p.setState(a, ascs.StateDisabling) }, ascs.ResponseSuccess

	case ascs.OpcodeReceiverStopReady:
		if a.dir != audio.DirectionSource {
			return nil, ascs.ResponseInvalidDirection
		}
		if a.state != ascs.StateDisabling {
			return nil, ascs.ResponseInvalidTransition
		}
		return func() { p.setState(a, ascs.StateQoSConfigured) }, ascs.ResponseSuccess

	case ascs.OpcodeRelease:
		if a.state == ascs.StateIdle || a.state == ascs.StateReleasing {
			return nil, ascs.ResponseInvalidTransition
		}
		return func() { p.release(a) }, ascs.ResponseSuccess
	}
	return nil, ascs.ResponseUnsupportedOpcode
}

func (p *Peripheral) release(a *ase) {
	p.setState(a, ascs.StateReleasing)
	a.cigID, a.cisID, a.metadata = 0, 0, nil
	if p.cache && a.config != nil {
		p.setState(a, ascs.StateCodecConfigured)
		return
	}
	a.codec, a.config = audio.CodecID{}, nil
	p.setState(a, ascs.StateIdle)
}

// Release releases an ASE on the server's own initiative.
func (p *Peripheral) Release(id uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.ase(id); a != nil && a.state != ascs.StateIdle && a.state != ascs.StateReleasing {
		p.release(a)
	}
}

// CisEstablished moves sink ASEs waiting on the CIS to Streaming.
func (p *Peripheral) CisEstablished(cigID, cisID uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cisUp[cisKey{cigID, cisID}] = true
	for _, a := range p.ases {
		if a.dir == audio.DirectionSink && a.state == ascs.StateEnabling && a.cigID == cigID && a.cisID == cisID {
			p.setState(a, ascs.StateStreaming)
		}
	}
}

// CisDisconnected returns streaming ASEs on the CIS to QoS Configured.
func (p *Peripheral) CisDisconnected(cigID, cisID uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cisUp, cisKey{cigID, cisID})
	for _, a := range p.ases {
		if a.cigID == cigID && a.cisID == cisID && a.state.HasStream() {
			p.setState(a, ascs.StateQoSConfigured)
		}
	}
}

// Disconnect drops all ASE state, as a server does when the ACL link goes
// down.
func (p *Peripheral) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cisUp = make(map[cisKey]bool)
	for _, a := range p.ases {
		*a = ase{id: a.id, dir: a.dir, handle: a.handle}
	}
}
