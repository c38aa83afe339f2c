package wire

// MsgVerAck acknowledges a received version message. The payload is
// empty; the command name alone carries the meaning.
type MsgVerAck struct{}

// Encode returns the (empty) verack payload.
func (m *MsgVerAck) Encode() []byte {
	return nil
}
