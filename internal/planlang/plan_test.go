package planlang

import (
	"testing"

	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

func newAccount(t *testing.T) walletkey.Account {
	t.Helper()
	kp, err := walletkey.NewKeyPair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp.Account()
}

func TestPayIsImmediatelyFinal(t *testing.T) {
	to := newAccount(t)
	p := NewPlan(Pay(Payment{Tokens: 10, To: to}))

	final, ok := p.FinalPayment()
	if !ok || final.Tokens != 10 || final.To != to {
		t.Fatalf("expected immediate final payment, got %+v ok=%v", final, ok)
	}
	if !p.Verify(10) {
		t.Fatalf("Pay(10) should verify against spendable=10")
	}
	if p.Verify(11) {
		t.Fatalf("Pay(10) should not verify against spendable=11")
	}
}

func TestAfterTimestampReleases(t *testing.T) {
	to := newAccount(t)
	p := NewPlan(After(Timestamp(100), Payment{Tokens: 5, To: to}))

	if _, ok := p.FinalPayment(); ok {
		t.Fatalf("After() should not be final before its condition fires")
	}
	if !p.Verify(5) {
		t.Fatalf("After(_, 5) should verify against spendable=5")
	}

	p.ApplyWitness(AtTimestamp(50))
	if _, ok := p.FinalPayment(); ok {
		t.Fatalf("witness below threshold must not release payment")
	}

	p.ApplyWitness(AtTimestamp(100))
	final, ok := p.FinalPayment()
	if !ok || final.Tokens != 5 {
		t.Fatalf("witness at threshold must release payment, got %+v ok=%v", final, ok)
	}
}

func TestAfterIsMonotone(t *testing.T) {
	to := newAccount(t)
	p := NewPlan(After(Timestamp(100), Payment{Tokens: 5, To: to}))
	p.ApplyWitness(AtTimestamp(200))
	p.ApplyWitness(AtTimestamp(50)) // smaller timestamp after completion: no-op

	final, ok := p.FinalPayment()
	if !ok || final.Tokens != 5 {
		t.Fatalf("plan should remain completed at its original payment")
	}
}

func TestRaceFirstMatchWins(t *testing.T) {
	refundTo := newAccount(t)
	claimTo := newAccount(t)
	signer := newAccount(t)

	p := NewPlan(Race(
		Timestamp(100), Payment{Tokens: 7, To: refundTo},
		SignedBy(signer), Payment{Tokens: 7, To: claimTo},
	))
	if !p.Verify(7) {
		t.Fatalf("Race with both branches at 7 tokens should verify")
	}

	p.ApplyWitness(AtTimestamp(50))
	if _, ok := p.FinalPayment(); ok {
		t.Fatalf("unmatched timestamp must not release either branch")
	}

	p.ApplyWitness(FromSignature(signer))
	final, ok := p.FinalPayment()
	if !ok || final.To != claimTo {
		t.Fatalf("signature branch should win and pay claimTo, got %+v ok=%v", final, ok)
	}

	// The discarded timestamp branch must never fire after completion.
	p.ApplyWitness(AtTimestamp(1000))
	final, ok = p.FinalPayment()
	if !ok || final.To != claimTo {
		t.Fatalf("completed race must not be reopened by the losing branch")
	}
}

func TestRaceUnequalBranchesFailVerify(t *testing.T) {
	to := newAccount(t)
	p := NewPlan(Race(
		Timestamp(1), Payment{Tokens: 3, To: to},
		SignedBy(to), Payment{Tokens: 4, To: to},
	))
	if p.Verify(3) || p.Verify(4) {
		t.Fatalf("Race branches spending different amounts must never verify")
	}
}
