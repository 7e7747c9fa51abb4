// Package fingerprint derives deterministic content fingerprints for
// build artifacts. A fingerprint covers both the source data and the
// parameters that shaped the artifact, so any change to either yields
// a new fingerprint and a new artifact file. This package has no I/O
// dependencies; callers stream file contents into a Hasher.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/gnames/gnuuid"
)

// Hasher accumulates labeled inputs into a SHA256 fingerprint.
// Labels keep the hash unambiguous: two inputs with swapped contents
// produce different fingerprints.
type Hasher struct {
	h hash.Hash
}

// New creates an empty Hasher.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// AddString mixes a labeled string value into the fingerprint.
func (h *Hasher) AddString(label, value string) {
	h.h.Write([]byte(label))
	h.h.Write([]byte{0})
	h.h.Write([]byte(value))
	h.h.Write([]byte{0})
}

// AddInt mixes a labeled integer value into the fingerprint.
func (h *Hasher) AddInt(label string, value int) {
	h.AddString(label, fmt.Sprintf("%d", value))
}

// AddReader streams labeled content into the fingerprint.
func (h *Hasher) AddReader(label string, r io.Reader) error {
	h.h.Write([]byte(label))
	h.h.Write([]byte{0})
	if _, err := io.Copy(h.h, r); err != nil {
		return err
	}
	h.h.Write([]byte{0})
	return nil
}

// Sum returns the fingerprint accumulated so far as a lowercase hex
// string. The Hasher stays usable; later additions extend the hash.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Combine derives a fingerprint from an ordered list of parts. It is
// a convenience for fingerprints built purely from strings, such as
// the index fingerprint derived from a store fingerprint and the
// embedding parameters.
func Combine(parts ...string) string {
	h := New()
	for i, p := range parts {
		h.AddString(fmt.Sprintf("%d", i), p)
	}
	return h.Sum()
}

// UUID returns the deterministic UUID v5 of a fingerprint. It gives
// artifacts a stable identifier that stays valid when file paths move.
func UUID(fp string) string {
	return gnuuid.New(fp).String()
}
