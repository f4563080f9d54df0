package gas

import "testing"

func TestMeterChargeWithinLimit(t *testing.T) {
	m := NewMeter(1000)
	if m.Charge(400) != Ok {
		t.Fatal("expected Ok")
	}
	if m.Charge(400) != Ok {
		t.Fatal("expected Ok")
	}
	if m.TotalUsed() != 800 {
		t.Fatalf("total used = %d, want 800", m.TotalUsed())
	}
	if m.Remaining() != 200 {
		t.Fatalf("remaining = %d, want 200", m.Remaining())
	}
}

func TestMeterExhaustionLatches(t *testing.T) {
	m := NewMeter(100)
	if m.Charge(150) != Exhausted {
		t.Fatal("expected Exhausted on over-limit charge")
	}
	if m.TotalUsed() != 100 {
		t.Fatalf("total used should latch at limit, got %d", m.TotalUsed())
	}
	if m.Charge(1) != Exhausted {
		t.Fatal("subsequent charges after exhaustion must also report Exhausted")
	}
	if !m.Exhausted() {
		t.Fatal("Exhausted() should report true")
	}
}

func TestMeterChargeOrErr(t *testing.T) {
	m := NewMeter(10)
	if err := m.ChargeOrErr(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.ChargeOrErr(100); err == nil {
		t.Fatal("expected gas exhaustion error")
	}
}

func TestSubMeterSyncChargesMaster(t *testing.T) {
	master := NewMeter(1000)
	sub := NewSubMeter(master)

	remaining := sub.Seed()
	if remaining != 1000 {
		t.Fatalf("seed should equal master remaining, got %d", remaining)
	}

	// simulate the wasm middleware consuming 300 points
	if sub.Sync(700) != Ok {
		t.Fatal("expected Ok")
	}
	if master.TotalUsed() != 300 {
		t.Fatalf("master should have charged the delta, got %d", master.TotalUsed())
	}

	// a second sync further along should only charge the new delta
	if sub.Sync(650) != Ok {
		t.Fatal("expected Ok")
	}
	if master.TotalUsed() != 350 {
		t.Fatalf("master total = %d, want 350", master.TotalUsed())
	}
}

func TestSubMeterSyncExhaustsMaster(t *testing.T) {
	master := NewMeter(100)
	sub := NewSubMeter(master)
	sub.Seed()
	// a host call charged the master directly after the seed
	master.Charge(10)
	if sub.Sync(0) != Exhausted {
		t.Fatal("consuming more than the master limit must report Exhausted")
	}
}
