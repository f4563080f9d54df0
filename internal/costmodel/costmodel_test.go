package costmodel

import (
	"testing"

	"github.com/ledgercore/txruntime/internal/protocol"
)

func TestCommandCostKnownAndUnknownKinds(t *testing.T) {
	s := Default()
	if got := s.CommandCost(protocol.CommandTransfer); got != 21000 {
		t.Fatalf("transfer base cost = %d, want 21000", got)
	}
	if got := s.CommandCost(protocol.CommandNextEpoch); got != 0 {
		t.Fatalf("next_epoch base cost = %d, want 0", got)
	}
	if got := s.CommandCost(protocol.CommandKind(255)); got != 0 {
		t.Fatalf("unknown kind base cost = %d, want 0", got)
	}
}

func TestStorageCostColdWarmReadWrite(t *testing.T) {
	s := Default()

	cases := []struct {
		name       string
		cold       bool
		write      bool
		nBytes     uint64
		want        uint64
	}{
		{"cold read", true, false, 0, s.StorageReadCold},
		{"warm read", false, false, 0, s.StorageReadWarm},
		{"cold write", true, true, 0, s.StorageWriteCold},
		{"warm write", false, true, 0, s.StorageWriteWarm},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := s.StorageCost(c.cold, c.write, c.nBytes)
			if got != c.want {
				t.Fatalf("StorageCost(%v,%v,%d) = %d, want %d", c.cold, c.write, c.nBytes, got, c.want)
			}
		})
	}

	base := s.StorageCost(true, true, 0)
	withBytes := s.StorageCost(true, true, 10)
	if withBytes != base+10*s.PerByteStorage {
		t.Fatalf("per-byte surcharge not applied: got %d, want %d", withBytes, base+10*s.PerByteStorage)
	}
}

func TestStorageCostColdStrictlyMoreExpensiveThanWarm(t *testing.T) {
	s := Default()
	if s.StorageCost(true, false, 5) <= s.StorageCost(false, false, 5) {
		t.Fatal("cold read must cost more than warm read")
	}
	if s.StorageCost(true, true, 5) <= s.StorageCost(false, true, 5) {
		t.Fatal("cold write must cost more than warm write")
	}
}
