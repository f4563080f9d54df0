package wasmvm

import (
	"fmt"

	"github.com/ledgercore/txruntime/internal/protocol"
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d}

// floatOpcodes enumerates the MVP floating-point instruction bytes:
// f32/f64 const, comparisons, arithmetic, and conversions. Presence of any
// of these makes execution non-deterministic across machines and is
// rejected outright, per spec §4.D.
var floatOpcodes = buildFloatOpcodeSet()

func buildFloatOpcodeSet() map[byte]struct{} {
	set := map[byte]struct{}{
		0x43: {}, 0x44: {}, // f32.const, f64.const
	}
	// f32 comparisons 0x5b-0x60, f64 comparisons 0x61-0x66
	for b := byte(0x5b); b <= 0x66; b++ {
		set[b] = struct{}{}
	}
	// f32 arithmetic/misc 0x8b-0x98, f64 arithmetic/misc 0x99-0xa6
	for b := byte(0x8b); b <= 0xa6; b++ {
		set[b] = struct{}{}
	}
	// conversions touching float types: i32.trunc_* 0xa8-0xab,
	// i64.trunc_* 0xae-0xb1, and convert/demote/promote/reinterpret 0xb2-0xbf
	for b := byte(0xa8); b <= 0xab; b++ {
		set[b] = struct{}{}
	}
	for b := byte(0xae); b <= 0xbf; b++ {
		set[b] = struct{}{}
	}
	return set
}

const (
	opMemoryGrow = 0x40
	opRefNull    = 0xd0
	opRefIsNull  = 0xd1
	opRefFunc    = 0xd2

	prefixSIMD    = 0xfd
	prefixThreads = 0xfe
	prefixBulkMem = 0xfc
)

// CheckDeterminism scans raw Wasm bytes for instructions this engine
// forbids: floating point, SIMD, threads/atomics, reference types, and
// bulk-memory operations outside the allowed subset (none are currently
// allowed). It also parses the memory section, if present, and rejects a
// declared maximum exceeding the configured page cap. Any hit surfaces as
// DeployInvalidContract, per spec §4.D.
func CheckDeterminism(code []byte, memoryLimitPages uint32) error {
	if len(code) < 8 || [4]byte(code[:4]) != wasmMagic {
		return fmt.Errorf("%w: not a wasm binary", protocol.ErrDeployInvalidContract)
	}
	if err := scanForbiddenOpcodes(code[8:]); err != nil {
		return err
	}
	if err := checkMemorySection(code, memoryLimitPages); err != nil {
		return err
	}
	return nil
}

func scanForbiddenOpcodes(body []byte) error {
	for _, b := range body {
		if _, ok := floatOpcodes[b]; ok {
			return fmt.Errorf("%w: floating-point opcode 0x%02x", protocol.ErrDeployInvalidContract, b)
		}
		switch b {
		case opMemoryGrow:
			// memory.grow itself is allowed. checkMemorySection below
			// rejects a declared maximum above the page cap; a memory with
			// no declared maximum is not capped, as the engine sets no
			// memory limit of its own (see store.go).
		case opRefNull, opRefIsNull, opRefFunc:
			return fmt.Errorf("%w: reference-type opcode 0x%02x", protocol.ErrDeployInvalidContract, b)
		case prefixSIMD:
			return fmt.Errorf("%w: simd opcode prefix", protocol.ErrDeployInvalidContract)
		case prefixThreads:
			return fmt.Errorf("%w: threads/atomics opcode prefix", protocol.ErrDeployInvalidContract)
		case prefixBulkMem:
			return fmt.Errorf("%w: bulk-memory opcode prefix", protocol.ErrDeployInvalidContract)
		}
	}
	return nil
}

// readULEB128 reads an unsigned LEB128 value starting at off, returning
// the value and the new offset.
func readULEB128(b []byte, off int) (uint64, int, error) {
	var result uint64
	var shift uint
	for {
		if off >= len(b) {
			return 0, off, fmt.Errorf("truncated leb128")
		}
		byt := b[off]
		off++
		result |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, off, fmt.Errorf("leb128 overflow")
		}
	}
	return result, off, nil
}

// checkMemorySection walks the top-level section headers looking for the
// memory section (id 5) and, if found, rejects a declared max page count
// above the configured cap.
func checkMemorySection(code []byte, memoryLimitPages uint32) error {
	off := 8
	for off < len(code) {
		if off >= len(code) {
			break
		}
		sectionID := code[off]
		off++
		size, next, err := readULEB128(code, off)
		if err != nil {
			return nil // malformed beyond our concern; wasmer's own validator will reject it.
		}
		off = next
		sectionEnd := off + int(size)
		if sectionEnd > len(code) {
			return nil
		}
		if sectionID == 5 { // memory section
			if err := checkMemoryLimits(code[off:sectionEnd], memoryLimitPages); err != nil {
				return err
			}
		}
		off = sectionEnd
	}
	return nil
}

func checkMemoryLimits(section []byte, cap_ uint32) error {
	off := 0
	count, next, err := readULEB128(section, off)
	if err != nil {
		return nil
	}
	off = next
	for i := uint64(0); i < count; i++ {
		if off >= len(section) {
			return nil
		}
		flags := section[off]
		off++
		_, next, err := readULEB128(section, off)
		if err != nil {
			return nil
		}
		off = next
		if flags&0x01 != 0 {
			maxPages, next, err := readULEB128(section, off)
			if err != nil {
				return nil
			}
			off = next
			if uint32(maxPages) > cap_ {
				return fmt.Errorf("%w: declared memory max %d pages exceeds cap %d", protocol.ErrDeployInvalidContract, maxPages, cap_)
			}
		}
	}
	return nil
}
