package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// Entry groups a batch of transactions under the fingerprint they will
// register once processed. Registration happens after processing: an
// entry's own fingerprint is never a valid freshness anchor for
// transactions inside that same entry (spec §4.5).
type Entry struct {
	Fingerprint  Fingerprint
	Transactions []Transaction
}

// Engine is the orchestrator: it owns the balance store, the pending
// plan table, the fingerprint window, the trusted-timestamp-source set,
// and the monotone engine clock. Every exported method is safe to call
// concurrently.
type Engine struct {
	balances *BalanceStore
	window   *FingerprintWindow

	pendingMu sync.RWMutex
	pending   map[walletkey.Signature]planlang.Plan

	sourcesMu sync.RWMutex
	sources   map[walletkey.Account]struct{}

	clockMu sync.RWMutex
	clock   int64 // engine clock; zero value is the zero instant

	txCount uint64 // accessed only via sync/atomic
}

// NewFromDeposit builds an Engine with empty state and applies a single
// seed payment. It registers no fingerprint; NewFromMint is the usual
// entry point for a full genesis bootstrap.
func NewFromDeposit(deposit planlang.Payment) *Engine {
	return NewFromDepositWithWindow(deposit, MaxFingerprintWindow)
}

// NewFromDepositWithWindow is NewFromDeposit with an explicit
// fingerprint window capacity override (cmd/ledgerd's --windowsize).
func NewFromDepositWithWindow(deposit planlang.Payment, windowCapacity int) *Engine {
	e := &Engine{
		balances: NewBalanceStore(),
		window:   NewFingerprintWindow(windowCapacity),
		pending:  make(map[walletkey.Signature]planlang.Plan),
		sources:  make(map[walletkey.Account]struct{}),
	}
	e.balances.ApplyPayment(deposit)
	return e
}

// NewFromMint builds an Engine from a Mint, registering the mint's
// fingerprint as the first freshness anchor.
func NewFromMint(mint Mint) *Engine {
	return NewFromMintWithWindow(mint, MaxFingerprintWindow)
}

// NewFromMintWithWindow is NewFromMint with an explicit fingerprint
// window capacity override.
func NewFromMintWithWindow(mint Mint, windowCapacity int) *Engine {
	e := NewFromDepositWithWindow(mint.Payment(), windowCapacity)
	e.window.Register(mint.Fingerprint)
	return e
}

// Balance returns a snapshot of account's balance.
func (e *Engine) Balance(account walletkey.Account) (int64, bool) {
	return e.balances.Balance(account)
}

// TransactionCount returns the number of admitted transactions. Witness
// instructions count too (debit succeeds trivially for them); a
// rejected transaction never increments it.
func (e *Engine) TransactionCount() uint64 {
	return atomic.LoadUint64(&e.txCount)
}

// FingerprintWindowLen reports the number of resident fingerprint
// entries, mostly useful in tests exercising eviction.
func (e *Engine) FingerprintWindowLen() int {
	return e.window.Len()
}

// RegisterFingerprint makes fp a valid freshness anchor for subsequent
// transactions, evicting the oldest resident entry if the window is
// full.
func (e *Engine) RegisterFingerprint(fp Fingerprint) {
	e.window.Register(fp)
}

// ProcessTransaction runs the two-stage admission pipeline for a single
// transaction: apply_debits, then (only on success) apply_credits.
func (e *Engine) ProcessTransaction(tx Transaction) error {
	if err := e.applyDebits(tx); err != nil {
		return err
	}
	e.applyCredits(tx)
	return nil
}

// applyDebits is the admission gate (spec §4.5). It never leaves
// partial state behind: a signature reservation made here is rolled
// back if the subsequent debit fails for insufficient funds.
func (e *Engine) applyDebits(tx Transaction) error {
	if tx.Instruction.Kind == InstructionNewContract && tx.Instruction.Contract.Tokens < 0 {
		return &NegativeTokensError{}
	}

	if !e.balances.Has(tx.From) {
		return &AccountNotFoundError{Account: tx.From}
	}

	if err := e.window.ReserveSignature(tx.Sig, tx.Fingerprint); err != nil {
		return err
	}

	if tx.Instruction.Kind == InstructionNewContract {
		log.Tracef("transaction %d tokens", tx.Instruction.Contract.Tokens)
		if !e.balances.Debit(tx.From, tx.Instruction.Contract.Tokens) {
			e.window.ForgetSignature(tx.Sig, tx.Fingerprint)
			return &InsufficientFundsError{Account: tx.From}
		}
	}

	atomic.AddUint64(&e.txCount, 1)
	return nil
}

// applyCredits is infallible from the engine's perspective: logic
// errors in witness instructions (malformed timestamp, unknown
// signature target) are operational no-ops, not faults (spec §7).
func (e *Engine) applyCredits(tx Transaction) {
	switch tx.Instruction.Kind {
	case InstructionNewContract:
		e.creditNewContract(tx.Sig, tx.Instruction.Contract)
	case InstructionApplyTimestamp:
		e.ApplyTimestamp(tx.From, tx.Instruction.Timestamp)
	case InstructionApplySignature:
		e.ApplySignature(tx.From, tx.Instruction.TargetSig)
	}
}

func (e *Engine) creditNewContract(sig walletkey.Signature, c Contract) {
	plan := c.Plan // struct copy: an independent reduction of the caller's plan

	e.clockMu.RLock()
	now := e.clock
	e.clockMu.RUnlock()

	plan.ApplyWitness(planlang.AtTimestamp(now))
	if payment, ok := plan.FinalPayment(); ok {
		e.balances.ApplyPayment(payment)
		return
	}

	e.pendingMu.Lock()
	e.pending[sig] = plan
	e.pendingMu.Unlock()
}

// ProcessTransactions runs a batch in two waves: every transaction's
// apply_debits first, then apply_credits for the ones that succeeded.
// A credit produced by transaction i must never fund the debit of
// transaction j in the same batch, so batch outcomes are independent of
// intra-batch order (spec §4.5's "why two waves").
func (e *Engine) ProcessTransactions(batch []Transaction) []error {
	log.Infof("processing transactions %d", len(batch))
	results := make([]error, len(batch))

	runParallel(len(batch), func(i int) {
		results[i] = e.applyDebits(batch[i])
	})

	runParallel(len(batch), func(i int) {
		if results[i] == nil {
			e.applyCredits(batch[i])
		}
	})

	return results
}

// ProcessEntries processes each entry's batch in order and registers
// its fingerprint afterward, surfacing the first admission error.
func (e *Engine) ProcessEntries(entries []Entry) error {
	for _, entry := range entries {
		for _, err := range e.ProcessTransactions(entry.Transactions) {
			if err != nil {
				return err
			}
		}
		e.window.Register(entry.Fingerprint)
	}
	return nil
}

// ApplyTimestamp processes a timestamp witness from from. The first
// timestamp the engine ever sees installs its sender as a trusted time
// source (genesis trust); later timestamps from untrusted senders are
// silently ignored. A witness below the current engine clock never
// moves it backward.
//
// The pending-table sweep below holds its write lock for the entire
// scan: releasing it between entries would let a concurrent
// ApplySignature finalize the same plan a second time.
func (e *Engine) ApplyTimestamp(from walletkey.Account, t int64) {
	e.clockMu.RLock()
	isGenesis := e.clock == 0
	e.clockMu.RUnlock()

	if isGenesis {
		e.sourcesMu.Lock()
		e.sources[from] = struct{}{}
		e.sourcesMu.Unlock()
	}

	e.sourcesMu.RLock()
	_, trusted := e.sources[from]
	e.sourcesMu.RUnlock()
	if !trusted {
		return
	}

	e.clockMu.Lock()
	if t > e.clock {
		e.clock = t
	}
	now := e.clock
	e.clockMu.Unlock()

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	var completed []walletkey.Signature
	for sig, plan := range e.pending {
		plan.ApplyWitness(planlang.AtTimestamp(now))
		if payment, ok := plan.FinalPayment(); ok {
			e.balances.ApplyPayment(payment)
			completed = append(completed, sig)
			continue
		}
		e.pending[sig] = plan
	}
	for _, sig := range completed {
		delete(e.pending, sig)
	}
}

// ApplySignature processes a signature witness from from targeting the
// pending plan keyed by targetSig. Absent entries are silently ignored:
// a completed transaction cannot be "cancelled" after the fact.
func (e *Engine) ApplySignature(from walletkey.Account, targetSig walletkey.Signature) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	plan, ok := e.pending[targetSig]
	if !ok {
		return
	}

	plan.ApplyWitness(planlang.FromSignature(from))
	if payment, ok := plan.FinalPayment(); ok {
		e.balances.ApplyPayment(payment)
		delete(e.pending, targetSig)
		return
	}
	e.pending[targetSig] = plan
}

// Transfer creates, signs, and processes an unconditional transfer of n
// tokens from keypair to to, bound to fp.
func (e *Engine) Transfer(keypair *walletkey.KeyPair, to walletkey.Account, n int64, fp Fingerprint) (walletkey.Signature, error) {
	return e.TransferTaxed(keypair, to, n, 0, fp)
}

// TransferTaxed is Transfer with an explicit flat fee.
func (e *Engine) TransferTaxed(keypair *walletkey.KeyPair, to walletkey.Account, n, fee int64, fp Fingerprint) (walletkey.Signature, error) {
	plan := planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: n - fee, To: to}))
	instr := NewContractInstruction(Contract{Tokens: n, Plan: plan})
	tx := NewTransaction(keypair, instr, fp, fee)
	if err := e.ProcessTransaction(tx); err != nil {
		return walletkey.Signature{}, err
	}
	return tx.Sig, nil
}

// TransferOnDate creates, signs, and processes a postdated transfer: n
// tokens reach to once the engine clock passes at, or revert to the
// sender if the sender signs the transaction's own signature first.
func (e *Engine) TransferOnDate(keypair *walletkey.KeyPair, to walletkey.Account, n, at int64, fp Fingerprint) (walletkey.Signature, error) {
	from := keypair.Account()
	budget := planlang.Race(
		planlang.Timestamp(at), planlang.Payment{Tokens: n, To: to},
		planlang.SignedBy(from), planlang.Payment{Tokens: n, To: from},
	)
	plan := planlang.NewPlan(budget)
	instr := NewContractInstruction(Contract{Tokens: n, Plan: plan})
	tx := NewTransaction(keypair, instr, fp, 0)
	if err := e.ProcessTransaction(tx); err != nil {
		return walletkey.Signature{}, err
	}
	return tx.Sig, nil
}
