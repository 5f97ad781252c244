package ascs

import "github.com/pkg/errors"

// NumberOfAsesInvalid is reported in a response when the command was too
// malformed to count its ASEs.
const NumberOfAsesInvalid uint8 = 0xFF

// AseResult is the per-ASE outcome in a control point response.
type AseResult struct {
	AseID  uint8
	Code   ResponseCode
	Reason Reason
}

// ControlPointResponse is notified on the control point after every write.
type ControlPointResponse struct {
	Op      Opcode
	Results []AseResult

	// Invalid is set when the server could not parse the command at all and
	// reported 0xFF as the ASE count.
	Invalid bool
}

// Encode returns the notification value.
func (r *ControlPointResponse) Encode() []byte {
	n := uint8(len(r.Results))
	if r.Invalid {
		n = NumberOfAsesInvalid
	}
	buf := []byte{byte(r.Op), n}
	for _, res := range r.Results {
		buf = append(buf, res.AseID, byte(res.Code), byte(res.Reason))
	}
	return buf
}

// Failed returns the results that are not Success.
func (r *ControlPointResponse) Failed() []AseResult {
	var out []AseResult
	for _, res := range r.Results {
		if res.Code != ResponseSuccess {
			out = append(out, res)
		}
	}
	return out
}

// DecodeControlPointResponse parses a control point notification.
func DecodeControlPointResponse(b []byte) (*ControlPointResponse, error) {
	if len(b) < 2 {
		return nil, ErrTooShort
	}
	resp := &ControlPointResponse{Op: Opcode(b[0])}
	n := int(b[1])
	if b[1] == NumberOfAsesInvalid {
		resp.Invalid = true
		n = (len(b) - 2) / 3
	}
	r := &reader{buf: b, off: 2}
	resp.Results = make([]AseResult, n)
	for i := range resp.Results {
		resp.Results[i] = AseResult{
			AseID:  r.u8(),
			Code:   ResponseCode(r.u8()),
			Reason: Reason(r.u8()),
		}
	}
	if err := r.done(); err != nil {
		return nil, errors.Wrap(err, "control point response")
	}
	return resp, nil
}
