package wasmvm

import "github.com/ledgercore/txruntime/internal/protocol"

// decodeDeferredCommand parses the payload a contract passed to the
// defer host import into a protocol.Command, using the shared wire codec.
func decodeDeferredCommand(kind protocol.CommandKind, payload []byte) (protocol.Command, error) {
	return protocol.DecodeCommandPayload(kind, payload)
}
