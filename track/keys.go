package track

import "github.com/cespare/xxhash/v2"

// Sentinel slot keys shared between the engine and its instrumentation.
// Hashed symbols rather than strings so they can never collide with a real
// user-supplied key.
var (
	// LengthKey is the slot a sequence's length lives under.
	LengthKey any = int64(xxhash.Sum64String("SYMBOL_LENGTH") & 0x7fffffffffffffff)
	// IterateKey is the slot observed when a keyed structure is enumerated.
	IterateKey any = int64(xxhash.Sum64String("SYMBOL_ITERATE") & 0x7fffffffffffffff)

	// valueKey is the slot a Derived publishes its memoized value under.
	valueKey any = int64(xxhash.Sum64String("SYMBOL_VALUE") & 0x7fffffffffffffff)
)
