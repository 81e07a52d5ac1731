package ledger

import (
	"bytes"
	"testing"

	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

func mustKeyPair(t *testing.T) *walletkey.KeyPair {
	t.Helper()
	kp, err := walletkey.NewKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func simpleTransferTx(t *testing.T, from *walletkey.KeyPair, to walletkey.Account, tokens int64, fp Fingerprint) Transaction {
	t.Helper()
	plan := planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: tokens, To: to}))
	instr := NewContractInstruction(Contract{Tokens: tokens, Plan: plan})
	return NewTransaction(from, instr, fp, 0)
}

func TestTransactionSignRoundTrip(t *testing.T) {
	kp := mustKeyPair(t)
	tx := simpleTransferTx(t, kp, kp.Account(), 42, Fingerprint{})
	if !tx.VerifySig() {
		t.Fatalf("freshly signed transaction must verify")
	}
	if !tx.VerifyPlan() {
		t.Fatalf("Pay(tokens) with fee=0 must satisfy verify_plan")
	}
}

func TestTransactionWithFee(t *testing.T) {
	kp := mustKeyPair(t)
	to := mustKeyPair(t).Account()

	mk := func(fee int64) Transaction {
		plan := planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: 1 - fee, To: to}))
		instr := NewContractInstruction(Contract{Tokens: 1, Plan: plan})
		return NewTransaction(kp, instr, Fingerprint{}, fee)
	}

	if !mk(1).VerifyPlan() {
		t.Fatalf("fee == tokens should verify when the plan spends the remainder (0)")
	}
	if mk(2).VerifyPlan() {
		t.Fatalf("fee > tokens must fail verify_plan")
	}
	if mk(-1).VerifyPlan() {
		t.Fatalf("negative fee must fail verify_plan")
	}
}

func TestLayoutOffsets(t *testing.T) {
	kp := mustKeyPair(t)
	tx := simpleTransferTx(t, kp, kp.Account(), 42, Fingerprint{})

	raw := tx.Bytes()
	sd := signData(tx.Instruction, tx.Fingerprint, tx.Fee)

	if !bytes.Equal(raw[SigOffset:SigOffset+walletkey.SignatureSize], tx.Sig[:]) {
		t.Fatalf("signature not found at SigOffset")
	}
	if !bytes.Equal(raw[PubKeyOffset:PubKeyOffset+walletkey.AccountSize], tx.From[:]) {
		t.Fatalf("public key not found at PubKeyOffset")
	}
	if !bytes.Equal(raw[SignedDataOffset:SignedDataOffset+len(sd)], sd) {
		t.Fatalf("signed data not found at SignedDataOffset")
	}
}

func TestTokenAttackFailsSignature(t *testing.T) {
	kp := mustKeyPair(t)
	tx := simpleTransferTx(t, kp, kp.Account(), 42, Fingerprint{})

	// Attack: inflate the declared tokens and the payment to match, after
	// signing. verify_plan is internally consistent again, but the
	// signature no longer covers the tampered instruction.
	tx.Instruction.Contract.Tokens = 1_000_000
	tx.Instruction.Contract.Plan = planlang.NewPlan(planlang.Pay(planlang.Payment{
		Tokens: 1_000_000,
		To:     kp.Account(),
	}))

	if !tx.VerifyPlan() {
		t.Fatalf("tampered plan should still be internally consistent")
	}
	if tx.VerifySig() {
		t.Fatalf("tampered instruction must fail signature verification")
	}
}

func TestHijackAttackFailsSignature(t *testing.T) {
	from := mustKeyPair(t)
	to := mustKeyPair(t).Account()
	thief := mustKeyPair(t).Account()

	tx := simpleTransferTx(t, from, to, 42, Fingerprint{})
	tx.Instruction.Contract.Plan = planlang.NewPlan(planlang.Pay(planlang.Payment{
		Tokens: 42,
		To:     thief,
	}))

	if !tx.VerifyPlan() {
		t.Fatalf("hijacked plan still spends the declared amount")
	}
	if tx.VerifySig() {
		t.Fatalf("redirected payment must fail signature verification")
	}
}

func TestOverspendAttackFailsVerifyPlan(t *testing.T) {
	from := mustKeyPair(t)
	to := mustKeyPair(t).Account()

	tx := simpleTransferTx(t, from, to, 1, Fingerprint{})
	tx.Instruction.Contract.Plan = planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: 2, To: to}))
	if tx.VerifyPlan() {
		t.Fatalf("plan spending more than declared tokens must fail verify_plan")
	}

	tx.Instruction.Contract.Plan = planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: 0, To: to}))
	if tx.VerifyPlan() {
		t.Fatalf("plan spending less than declared tokens must also fail verify_plan")
	}
}
