package protocol

// CBIVersionAdam is the first, and currently only, Contract Binary
// Interface revision. Mirrors the real runtime's CBIVER_ADAM constant.
const CBIVersionAdam uint32 = 0

// CBIVersionCurrent is the newest CBI version this core understands.
const CBIVersionCurrent uint32 = CBIVersionAdam

// IsCBICompatible reports whether a contract deployed against version v
// can be executed by this runtime. Compatibility is one-directional:
// a runtime understands its own version and every earlier one.
func IsCBICompatible(v uint32) bool {
	return v <= CBIVersionCurrent
}
