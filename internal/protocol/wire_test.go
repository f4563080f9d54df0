package protocol

import (
	"bytes"
	"testing"
)

func TestTransferCommandRoundTrip(t *testing.T) {
	var to Address
	to[0] = 0xAB
	cmd := Command{Kind: CommandTransfer, Transfer: &TransferCommand{To: to, Amount: 12345}}

	payload, err := EncodeCommandPayload(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCommandPayload(CommandTransfer, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Transfer.To != to || decoded.Transfer.Amount != 12345 {
		t.Fatalf("round-trip mismatch: %+v", decoded.Transfer)
	}
}

func TestCallCommandRoundTrip(t *testing.T) {
	var target Address
	target[1] = 0x42
	cmd := Command{Kind: CommandCall, Call: &CallCommand{
		Target: target,
		Method: "ping",
		Args:   []byte{1, 2, 3},
		Amount: 77,
	}}

	payload, err := EncodeCommandPayload(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCommandPayload(CommandCall, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Call.Target != target || decoded.Call.Method != "ping" || !bytes.Equal(decoded.Call.Args, []byte{1, 2, 3}) || decoded.Call.Amount != 77 {
		t.Fatalf("round-trip mismatch: %+v", decoded.Call)
	}
}

func TestDeployCommandRoundTrip(t *testing.T) {
	cmd := Command{Kind: CommandDeploy, Deploy: &DeployCommand{Code: []byte{0, 1, 2}, CBIVersion: 0}}
	payload, err := EncodeCommandPayload(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCommandPayload(CommandDeploy, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Deploy.Code, []byte{0, 1, 2}) || decoded.Deploy.CBIVersion != 0 {
		t.Fatalf("round-trip mismatch: %+v", decoded.Deploy)
	}
}

func TestDecodeCommandPayloadRejectsUnsupportedDeferredKind(t *testing.T) {
	if _, err := DecodeCommandPayload(CommandCreatePool, nil); err == nil {
		t.Fatal("expected an error decoding a kind unsupported as a deferred command")
	}
}

func TestDecodeCommandPayloadRejectsTruncatedInput(t *testing.T) {
	if _, err := DecodeCommandPayload(CommandTransfer, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for truncated transfer payload")
	}
}
