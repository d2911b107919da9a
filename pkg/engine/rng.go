// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import "math/rand"

// addrRange produces uniform random logical block addresses in an
// inclusive range. One instance per worker; never shared, so the hot
// path takes no locks.
type addrRange struct {
	lo, hi uint64
	rnd    *rand.Rand
	calls  int
}

func newAddrRange(lo, hi uint64, seed int64) *addrRange {
	return &addrRange{lo: lo, hi: hi, rnd: rand.New(rand.NewSource(seed))}
}

// Next returns the next address. A degenerate range [lo,lo] never
// consults the generator.
func (r *addrRange) Next() uint64 {
	if r.lo == r.hi {
		return r.lo
	}
	r.calls++
	span := r.hi - r.lo + 1
	switch {
	case span == 0: // full 64-bit range
		return r.rnd.Uint64()
	case span <= 1<<62:
		return r.lo + uint64(r.rnd.Int63n(int64(span)))
	default:
		return r.lo + r.rnd.Uint64()%span
	}
}
