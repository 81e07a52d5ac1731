// Package walletkey adapts btcec/v2 ECDSA keys into the fixed-width
// Account/Signature primitives the ledger core treats as externally
// supplied. Everything here is a thin wrapper: the ledger never reaches
// into secp256k1 internals directly.
package walletkey

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// AccountSize is the width of a compressed secp256k1 public key.
const AccountSize = 33

// SignatureSize is the fixed capacity reserved for a DER-encoded
// signature plus a one-byte length prefix. secp256k1 DER signatures
// never exceed 72 bytes, so 73 bytes is always enough.
const SignatureSize = 73

// Account identifies a ledger participant by their compressed public key.
type Account [AccountSize]byte

// String renders the account as hex, for logging.
func (a Account) String() string {
	return fmt.Sprintf("%x", a[:])
}

// Signature is a fixed-width container for a DER-encoded ECDSA signature.
// Byte 0 holds the DER length; the remainder is the DER payload, zero
// padded. Equality and use as a map key both work directly on the array.
type Signature [SignatureSize]byte

// IsZero reports whether this is the default, unsigned Signature value.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) der() []byte {
	n := int(s[0])
	if n > SignatureSize-1 {
		n = SignatureSize - 1
	}
	return s[1 : 1+n]
}

// KeyPair is a signing keypair: a private key and its derived Account.
type KeyPair struct {
	priv *btcec.PrivateKey
}

// NewKeyPair generates a fresh random keypair.
func NewKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromSeed derives a deterministic keypair from a 32-byte
// private scalar. Used by the demo playback harness, where actors need
// stable identities across runs; never used on the hot admission path.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("seed must be 32 bytes, got %d", len(seed))
	}
	priv, _ := btcec.PrivKeyFromBytes(seed)
	return &KeyPair{priv: priv}, nil
}

// Account returns the public half of the keypair.
func (k *KeyPair) Account() Account {
	var acc Account
	copy(acc[:], k.priv.PubKey().SerializeCompressed())
	return acc
}

// Sign signs data and returns a fixed-width Signature.
func (k *KeyPair) Sign(data []byte) Signature {
	hash := sha256.Sum256(data)
	sig := ecdsa.Sign(k.priv, hash[:])

	var out Signature
	der := sig.Serialize()
	if len(der) > SignatureSize-1 {
		// Cannot happen for secp256k1 DER signatures; guard anyway so
		// a future curve change fails loudly instead of truncating.
		panic("walletkey: DER signature exceeds fixed capacity")
	}
	out[0] = byte(len(der))
	copy(out[1:], der)
	return out
}

// Verify checks sig against data under account.
func Verify(account Account, data []byte, sig Signature) bool {
	pub, err := btcec.ParsePubKey(account[:])
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig.der())
	if err != nil {
		return false
	}
	hash := sha256.Sum256(data)
	return parsed.Verify(hash[:], pub)
}
