package wasmvm

import "github.com/wasmerio/wasmer-go/wasmer"

// BuildImportObject registers every host import named in spec §4.F under
// the "env" namespace, following the teacher's pattern of one
// wasmer.NewFunction per host call with a Go closure capturing env.
func BuildImportObject(store *wasmer.Store, module *wasmer.Module, env *HostEnvironment) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	fn := func(params []wasmer.ValueKind, results []wasmer.ValueKind, cb func([]wasmer.Value) ([]wasmer.Value, error)) *wasmer.Function {
		return wasmer.NewFunction(store, wasmer.NewFunctionType(wasmer.NewValueTypes(params...), wasmer.NewValueTypes(results...)), cb)
	}

	k32 := wasmer.I32
	k64 := wasmer.I64

	imports.Register("env", map[string]wasmer.IntoExtern{
		"get": fn([]wasmer.ValueKind{k32, k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostGet(args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"set": fn([]wasmer.ValueKind{k32, k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostSet(args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"balance": fn([]wasmer.ValueKind{k32, k32}, []wasmer.ValueKind{k64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			v, status := env.hostBalance(args[0].I32(), args[1].I32())
			if status != StatusSuccess {
				return []wasmer.Value{wasmer.NewI64(0)}, nil
			}
			return []wasmer.Value{wasmer.NewI64(int64(v))}, nil
		}),
		"amount": fn(nil, []wasmer.ValueKind{k64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(int64(env.hostAmount()))}, nil
		}),
		"block_number": fn(nil, []wasmer.ValueKind{k64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(int64(env.hostBlockNumber()))}, nil
		}),
		"block_timestamp": fn(nil, []wasmer.ValueKind{k64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(int64(env.hostBlockTimestamp()))}, nil
		}),
		"block_hash": fn([]wasmer.ValueKind{k64, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostBlockHash(uint64(args[0].I64()), args[1].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"caller": fn([]wasmer.ValueKind{k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(env.hostCaller(args[0].I32()))}, nil
		}),
		"this_address": fn([]wasmer.ValueKind{k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(env.hostThisAddress(args[0].I32()))}, nil
		}),
		"method_name": fn([]wasmer.ValueKind{k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(env.hostMethodName(args[0].I32(), args[1].I32()))}, nil
		}),
		"args": fn([]wasmer.ValueKind{k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(env.hostArgs(args[0].I32(), args[1].I32()))}, nil
		}),
		"return": fn([]wasmer.ValueKind{k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(env.hostReturn(args[0].I32(), args[1].I32()))}, nil
		}),
		"transfer": fn([]wasmer.ValueKind{k32, k32, k64}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostTransfer(args[0].I32(), args[1].I32(), uint64(args[2].I64()))
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"call": fn([]wasmer.ValueKind{k32, k32, k32, k32, k32, k32, k64, k64, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostCall(
				args[0].I32(), args[1].I32(), // target
				args[2].I32(), args[3].I32(), // method
				args[4].I32(), args[5].I32(), // args
				uint64(args[6].I64()),        // amount
				uint64(args[7].I64()),        // gas limit
				args[8].I32(), args[9].I32(), // out
			)
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"defer": fn([]wasmer.ValueKind{k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostDefer(args[0].I32(), args[1].I32(), args[2].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"log": fn([]wasmer.ValueKind{k32, k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostLog(args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"crypto_sha256": fn([]wasmer.ValueKind{k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostCryptoSHA256(args[0].I32(), args[1].I32(), args[2].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"crypto_keccak256": fn([]wasmer.ValueKind{k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostCryptoKeccak256(args[0].I32(), args[1].I32(), args[2].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
		"crypto_ed25519_verify": fn([]wasmer.ValueKind{k32, k32, k32, k32}, []wasmer.ValueKind{k32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			r := env.hostCryptoEd25519Verify(args[0].I32(), args[1].I32(), args[2].I32(), args[3].I32())
			return []wasmer.Value{wasmer.NewI32(r)}, nil
		}),
	})

	return imports
}
