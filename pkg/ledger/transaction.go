package ledger

import (
	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// InstructionKind distinguishes the three instruction shapes a
// Transaction can carry.
type InstructionKind uint8

const (
	// InstructionNewContract debits Contract.Tokens from the sender and
	// parks or pays out Contract.Plan.
	InstructionNewContract InstructionKind = iota
	// InstructionApplyTimestamp is a timestamp witness from the sender.
	InstructionApplyTimestamp
	// InstructionApplySignature is a signature witness targeting the
	// pending plan keyed by TargetSig.
	InstructionApplySignature
)

// Contract pairs the tokens debited at admission with the plan that
// must, over every possible witness history, spend exactly
// tokens-fee (enforced by VerifyPlan).
type Contract struct {
	Tokens int64
	Plan   planlang.Plan
}

// Instruction is the sum of the three shapes a Transaction can request.
// Only the field matching Kind is meaningful.
type Instruction struct {
	Kind      InstructionKind
	Contract  Contract
	Timestamp int64
	TargetSig walletkey.Signature
}

// NewContractInstruction builds an InstructionNewContract.
func NewContractInstruction(c Contract) Instruction {
	return Instruction{Kind: InstructionNewContract, Contract: c}
}

// ApplyTimestampInstruction builds an InstructionApplyTimestamp.
func ApplyTimestampInstruction(at int64) Instruction {
	return Instruction{Kind: InstructionApplyTimestamp, Timestamp: at}
}

// ApplySignatureInstruction builds an InstructionApplySignature.
func ApplySignatureInstruction(target walletkey.Signature) Instruction {
	return Instruction{Kind: InstructionApplySignature, TargetSig: target}
}

// Transaction is the signed envelope binding an instruction, a fee, and
// a freshness fingerprint.
type Transaction struct {
	Sig         walletkey.Signature
	From        walletkey.Account
	Instruction Instruction
	Fingerprint Fingerprint
	Fee         int64
}

// NewTransaction builds and signs a Transaction from keypair.
func NewTransaction(keypair *walletkey.KeyPair, instr Instruction, fp Fingerprint, fee int64) Transaction {
	tx := Transaction{
		From:        keypair.Account(),
		Instruction: instr,
		Fingerprint: fp,
		Fee:         fee,
	}
	tx.Sig = keypair.Sign(signData(instr, fp, fee))
	return tx
}

// VerifySig checks Sig against From over the canonical sign-data.
func (tx Transaction) VerifySig() bool {
	log.Warnf("transaction signature verification called")
	return walletkey.Verify(tx.From, signData(tx.Instruction, tx.Fingerprint, tx.Fee), tx.Sig)
}

// VerifyPlan checks the structural invariants of §4.2: fee is
// non-negative, and (for NewContract) the fee doesn't exceed the
// debited tokens and the plan spends exactly tokens-fee under every
// witness history. Trivially true for witness instructions.
func (tx Transaction) VerifyPlan() bool {
	if tx.Fee < 0 {
		return false
	}
	if tx.Instruction.Kind != InstructionNewContract {
		return true
	}
	c := tx.Instruction.Contract
	if tx.Fee > c.Tokens {
		return false
	}
	return c.Plan.Verify(c.Tokens - tx.Fee)
}
