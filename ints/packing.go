// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package ints

// BitsForRange returns the number of bits needed to represent every
// integer in [0, span] inclusive, i.e. ceil(log2(span+1)). A span of 0
// (a constant field) needs 0 bits.
func BitsForRange(span uint64) int {
	if span == 0 {
		return 0
	}
	bits := 0
	// span+1 values must be representable
	n := span
	for n > 0 {
		bits++
		n >>= 1
	}
	// bits is floor(log2(span))+1; that already covers span+1 values
	// unless span+1 is itself an exact power of two greater than what
	// `bits` bits can hold (only possible when span == 2^bits-1, which
	// is already covered), so bits is exact.
	return bits
}

// PackedBytes returns the number of whole bytes needed to hold count
// values of the given bit width, tightly packed with no per-value
// padding.
func PackedBytes(count int, bitWidth int) int {
	total := uint64(count) * uint64(bitWidth)
	return int(ChunkCount(total, 8))
}
