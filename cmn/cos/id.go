// Package cos provides common low-level types and utilities shared across
// the reactor runtime's packages.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package cos

import (
	"crypto/rand"
	"strconv"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

// alphabet for generated ids, patterned after shortid.DEFAULT_ABC but with
// a project-specific ordering so ids are visibly distinct from other users
// of the shortid library sharing the same process.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const LenShortID = 9 // per https://github.com/teris-io/shortid#id-length

var (
	sid  *shortid.Shortid
	rtie atomic.Uint32
)

func init() {
	sid = shortid.MustNew(1 /*worker*/, idABC, 0 /*seed*/)
}

// GenID returns a short, process-wide-unique identifier used for channel
// identities and similar runtime objects. It tie-breaks the rare case of a
// leading/trailing separator so ids are always safe to use as log tokens.
func GenID() string {
	id := sid.MustGenerate()
	var h, t string
	if !isAlpha(id[0]) {
		h = string(rune('A' + rtie.Add(1)%26))
	}
	if c := id[len(id)-1]; c == '-' || c == '_' {
		t = string(rune('a' + rtie.Add(1)%26))
	}
	return h + id + t
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// HashName deterministically hashes a name to a uint64 with xxhash and a
// fixed seed. No package in this module calls it at present.
const hashSeed = 0x811c9dc5

func HashName(name string) uint64 {
	return xxhash.Checksum64S([]byte(name), hashSeed)
}

// HashName32 is the 32-bit truncation, convenient as a map-friendly id.
func HashName32(name string) uint32 {
	return uint32(HashName(name))
}

// CryptoRandS returns an n-byte random alphanumeric string, used where an
// id must not depend on process-wide shortid state (e.g. tests run in
// parallel processes).
func CryptoRandS(n int) string {
	const abc = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = abc[int(b[i])%len(abc)]
	}
	return string(b)
}

func Itoa(i int) string { return strconv.Itoa(i) }
