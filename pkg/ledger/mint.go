package ledger

import (
	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// Mint is the genesis bootstrap collaborator (spec §6, "Inbound from
// bootstrap"): a single deposit payment plus the fingerprint new
// entries should chain from. It lives outside the engine's own
// responsibilities; construction just reads it once.
type Mint struct {
	Account     walletkey.Account
	Tokens      int64
	Fingerprint Fingerprint
}

// Payment returns the genesis deposit this mint represents.
func (m Mint) Payment() planlang.Payment {
	return planlang.Payment{Tokens: m.Tokens, To: m.Account}
}
