package ledger

import (
	"container/list"
	"sync"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// FingerprintSize is the width of a ledger fingerprint digest.
const FingerprintSize = 32

// Fingerprint is an opaque digest identifying a prior ledger entry; it
// serves as a transaction's freshness anchor.
type Fingerprint [FingerprintSize]byte

// HashFingerprint derives a Fingerprint from arbitrary seed bytes (a
// fixed per-entry label, in the demo node; any unique seed in tests). It exists because the core treats hashing as an external
// primitive (spec-external-collaborator) but still needs a concrete way
// to mint Fingerprint values for tests and the demo harness.
func HashFingerprint(seed []byte) Fingerprint {
	return Fingerprint(blake256.Sum256(seed))
}

// MaxFingerprintWindow is the bound on resident fingerprint entries; a
// wire-visible constant (spec §6) clients use to pick freshness anchors.
const MaxFingerprintWindow = 4096

// fingerprintEntry is a single resident fingerprint and the set of
// signatures admitted under it. Its own lock means contention is
// per-fingerprint, not global to the window.
type fingerprintEntry struct {
	fp   Fingerprint
	mu   sync.RWMutex
	sigs map[walletkey.Signature]struct{}
}

// FingerprintWindow is a bounded FIFO queue of recent ledger
// fingerprints, each carrying its own signature-dedup set. It closes the
// replay window: once a fingerprint ages out, transactions bound to it
// are rejected with ErrLastIDNotFound.
type FingerprintWindow struct {
	mu      sync.RWMutex
	entries *list.List // of *fingerprintEntry, oldest at Front
	cap     int
}

// NewFingerprintWindow builds an empty window bounded at capacity.
func NewFingerprintWindow(capacity int) *FingerprintWindow {
	if capacity <= 0 {
		capacity = MaxFingerprintWindow
	}
	return &FingerprintWindow{
		entries: list.New(),
		cap:     capacity,
	}
}

// Register appends fp as the newest entry, evicting the oldest one (and
// its sig-set) if the window is already at capacity. Duplicate
// fingerprints are permitted.
func (w *FingerprintWindow) Register(fp Fingerprint) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entries.Len() >= w.cap {
		w.entries.Remove(w.entries.Front())
	}
	w.entries.PushBack(&fingerprintEntry{
		fp:   fp,
		sigs: make(map[walletkey.Signature]struct{}),
	})
}

// newest finds the most recently registered entry carrying fp, scanning
// back to front since later registrations of the same digest shadow
// earlier ones.
func (w *FingerprintWindow) newest(fp Fingerprint) *fingerprintEntry {
	for e := w.entries.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(*fingerprintEntry)
		if entry.fp == fp {
			return entry
		}
	}
	return nil
}

// ReserveSignature binds sig to fp for replay protection. It fails with
// ErrLastIDNotFound if fp has been evicted or never seen, and with
// ErrDuplicateSig if sig is already reserved under that fingerprint.
func (w *FingerprintWindow) ReserveSignature(sig walletkey.Signature, fp Fingerprint) error {
	w.mu.RLock()
	entry := w.newest(fp)
	w.mu.RUnlock()
	if entry == nil {
		return &LastIDNotFoundError{Fingerprint: fp}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if _, ok := entry.sigs[sig]; ok {
		return &DuplicateSignatureError{Signature: sig}
	}
	entry.sigs[sig] = struct{}{}
	return nil
}

// ForgetSignature rolls back a reservation made by ReserveSignature; it
// is idempotent if sig was never reserved under fp (or fp is absent).
func (w *FingerprintWindow) ForgetSignature(sig walletkey.Signature, fp Fingerprint) {
	w.mu.RLock()
	entry := w.newest(fp)
	w.mu.RUnlock()
	if entry == nil {
		return
	}

	entry.mu.Lock()
	delete(entry.sigs, sig)
	entry.mu.Unlock()
}

// Newest returns the most recently registered fingerprint, if any.
func (w *FingerprintWindow) Newest() (Fingerprint, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	back := w.entries.Back()
	if back == nil {
		return Fingerprint{}, false
	}
	return back.Value.(*fingerprintEntry).fp, true
}

// Len reports the number of resident fingerprint entries.
func (w *FingerprintWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entries.Len()
}
