package ascs

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
)

// Command is an ASE Control Point operation. Every command addresses one or
// more ASEs on a single peer.
type Command interface {
	Opcode() Opcode
	AseIDs() []uint8
	Encode() ([]byte, error)
}

// CodecConfiguration is the per-ASE body of a Config Codec operation.
type CodecConfiguration struct {
	AseID         uint8
	TargetLatency uint8
	TargetPHY     uint8
	Codec         audio.CodecID
	Config        []byte
}

// ConfigCodec configures codec parameters on one or more ASEs.
type ConfigCodec struct {
	Ases []CodecConfiguration
}

func (c *ConfigCodec) Opcode() Opcode { return OpcodeConfigCodec }

func (c *ConfigCodec) AseIDs() []uint8 {
	ids := make([]uint8, len(c.Ases))
	for i, a := range c.Ases {
		ids[i] = a.AseID
	}
	return ids
}

func (c *ConfigCodec) Encode() ([]byte, error) {
	buf, err := header(OpcodeConfigCodec, len(c.Ases))
	if err != nil {
		return nil, err
	}
	for _, a := range c.Ases {
		buf = append(buf, a.AseID, a.TargetLatency, a.TargetPHY)
		buf = a.Codec.AppendTo(buf)
		if buf, err = appendLV(buf, a.Config); err != nil {
			return nil, errors.Wrapf(err, "ASE %d codec configuration", a.AseID)
		}
	}
	return buf, nil
}

// QoSConfiguration is the per-ASE body of a Config QoS operation.
type QoSConfiguration struct {
	AseID uint8
	CigID uint8
	CisID uint8
	QoS   audio.QoS
}

// ConfigQoS configures the isochronous parameters on one or more ASEs.
type ConfigQoS struct {
	Ases []QoSConfiguration
}

func (c *ConfigQoS) Opcode() Opcode { return OpcodeConfigQoS }

func (c *ConfigQoS) AseIDs() []uint8 {
	ids := make([]uint8, len(c.Ases))
	for i, a := range c.Ases {
		ids[i] = a.AseID
	}
	return ids
}

func (c *ConfigQoS) Encode() ([]byte, error) {
	buf, err := header(OpcodeConfigQoS, len(c.Ases))
	if err != nil {
		return nil, err
	}
	for _, a := range c.Ases {
		buf = append(buf, a.AseID, a.CigID, a.CisID)
		buf = appendQoS(buf, a.QoS)
	}
	return buf, nil
}

func appendQoS(buf []byte, q audio.QoS) []byte {
	buf = appendU24(buf, q.SDUInterval)
	buf = append(buf, q.Framing, q.PHY)
	buf = appendU16(buf, q.MaxSDU)
	buf = append(buf, q.RetransmissionNumber)
	buf = appendU16(buf, q.MaxTransportLatency)
	return appendU24(buf, q.PresentationDelay)
}

func readQoS(r *reader) audio.QoS {
	return audio.QoS{
		SDUInterval:          r.u24(),
		Framing:              r.u8(),
		PHY:                  r.u8(),
		MaxSDU:               r.u16(),
		RetransmissionNumber: r.u8(),
		MaxTransportLatency:  r.u16(),
		PresentationDelay:    r.u24(),
	}
}

// AseMetadata is the per-ASE body of Enable and Update Metadata.
type AseMetadata struct {
	AseID    uint8
	Metadata []byte
}

// MetadataCommand is Enable or Update Metadata; both share one layout.
type MetadataCommand struct {
	Op   Opcode
	Ases []AseMetadata
}

// NewEnable returns an Enable command.
func NewEnable(ases ...AseMetadata) *MetadataCommand {
	return &MetadataCommand{Op: OpcodeEnable, Ases: ases}
}

// NewUpdateMetadata returns an Update Metadata command.
func NewUpdateMetadata(ases ...AseMetadata) *MetadataCommand {
	return &MetadataCommand{Op: OpcodeUpdateMetadata, Ases: ases}
}

func (c *MetadataCommand) Opcode() Opcode { return c.Op }

func (c *MetadataCommand) AseIDs() []uint8 {
	ids := make([]uint8, len(c.Ases))
	for i, a := range c.Ases {
		ids[i] = a.AseID
	}
	return ids
}

func (c *MetadataCommand) Encode() ([]byte, error) {
	buf, err := header(c.Op, len(c.Ases))
	if err != nil {
		return nil, err
	}
	for _, a := range c.Ases {
		buf = append(buf, a.AseID)
		if buf, err = appendLV(buf, a.Metadata); err != nil {
			return nil, errors.Wrapf(err, "ASE %d metadata", a.AseID)
		}
	}
	return buf, nil
}

// IDCommand is any operation whose body is a bare list of ASE ids:
// Receiver Start Ready, Disable, Receiver Stop Ready and Release.
type IDCommand struct {
	Op  Opcode
	IDs []uint8
}

// NewReceiverStartReady returns a Receiver Start Ready command.
func NewReceiverStartReady(ids ...uint8) *IDCommand {
	return &IDCommand{Op: OpcodeReceiverStartReady, IDs: ids}
}

// NewDisable returns a Disable command.
func NewDisable(ids ...uint8) *IDCommand {
	return &IDCommand{Op: OpcodeDisable, IDs: ids}
}

// NewReceiverStopReady returns a Receiver Stop Ready command.
func NewReceiverStopReady(ids ...uint8) *IDCommand {
	return &IDCommand{Op: OpcodeReceiverStopReady, IDs: ids}
}

// NewRelease returns a Release command.
func NewRelease(ids ...uint8) *IDCommand {
	return &IDCommand{Op: OpcodeRelease, IDs: ids}
}

func (c *IDCommand) Opcode() Opcode { return c.Op }

func (c *IDCommand) AseIDs() []uint8 { return c.IDs }

func (c *IDCommand) Encode() ([]byte, error) {
	buf, err := header(c.Op, len(c.IDs))
	if err != nil {
		return nil, err
	}
	return append(buf, c.IDs...), nil
}

// DecodeCommand parses a control point write. It is used by the server side.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < 2 {
		return nil, ErrTooShort
	}
	op := Opcode(b[0])
	n := int(b[1])
	if !op.IsValid() {
		return nil, errors.Wrapf(ErrUnknownOpcode, "opcode 0x%02x", b[0])
	}
	if n == 0 {
		return nil, errors.Wrap(ErrNoAses, op.String())
	}
	r := &reader{buf: b, off: 2}

	var cmd Command
	switch op {
	case OpcodeConfigCodec:
		c := &ConfigCodec{Ases: make([]CodecConfiguration, n)}
		for i := range c.Ases {
			a := &c.Ases[i]
			a.AseID = r.u8()
			a.TargetLatency = r.u8()
			a.TargetPHY = r.u8()
			if id := r.take(audio.CodecIDSize); id != nil {
				a.Codec, _ = audio.DecodeCodecID(id)
			}
			a.Config = r.bytes(int(r.u8()))
		}
		cmd = c
	case OpcodeConfigQoS:
		c := &ConfigQoS{Ases: make([]QoSConfiguration, n)}
		for i := range c.Ases {
			a := &c.Ases[i]
			a.AseID = r.u8()
			a.CigID = r.u8()
			a.CisID = r.u8()
			a.QoS = readQoS(r)
		}
		cmd = c
	case OpcodeEnable, OpcodeUpdateMetadata:
		c := &MetadataCommand{Op: op, Ases: make([]AseMetadata, n)}
		for i := range c.Ases {
			c.Ases[i].AseID = r.u8()
			c.Ases[i].Metadata = r.bytes(int(r.u8()))
		}
		cmd = c
	default:
		cmd = &IDCommand{Op: op, IDs: r.bytes(n)}
	}

	if err := r.done(); err != nil {
		return nil, errors.Wrap(err, op.String())
	}
	return cmd, nil
}

// Describe renders a command for logs.
func Describe(c Command) string {
	return fmt.Sprintf("%s%v", c.Opcode(), c.AseIDs())
}
