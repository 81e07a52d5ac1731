// Package planlang provides a small domain-specific language for payment
// plans. Callers build Budget values that a Plan wraps; an interpreter
// feeds the plan Witness events, reducing it until it yields a final
// Payment; a witness that matches no condition leaves the residual plan
// unchanged.
package planlang

import "github.com/hleb-albau/ledgercore/internal/walletkey"

// Payment is the terminal obligation of a plan: move tokens to an account.
type Payment struct {
	Tokens int64
	To     walletkey.Account
}

// ConditionKind distinguishes the two condition shapes a Budget can guard on.
type ConditionKind uint8

const (
	// ConditionTimestamp is satisfied once the engine clock reaches At.
	ConditionTimestamp ConditionKind = iota
	// ConditionSignature is satisfied by a signature witness from Signer.
	ConditionSignature
)

// Condition gates a conditional payment; exactly one of At/Signer applies
// depending on Kind.
type Condition struct {
	Kind   ConditionKind
	At     int64 // unix nanoseconds, used when Kind == ConditionTimestamp
	Signer walletkey.Account
}

// Timestamp builds a Condition satisfied by any timestamp witness >= at.
func Timestamp(at int64) Condition {
	return Condition{Kind: ConditionTimestamp, At: at}
}

// SignedBy builds a Condition satisfied by a signature witness from signer.
func SignedBy(signer walletkey.Account) Condition {
	return Condition{Kind: ConditionSignature, Signer: signer}
}

// WitnessKind distinguishes the two witness shapes the engine can dispatch.
type WitnessKind uint8

const (
	// WitnessTimestamp carries a trusted clock reading.
	WitnessTimestamp WitnessKind = iota
	// WitnessSignature carries a third-party signer's identity.
	WitnessSignature
)

// Witness is an out-of-band event that may discharge a Condition.
type Witness struct {
	Kind   WitnessKind
	At     int64
	Signer walletkey.Account
}

// AtTimestamp builds a timestamp Witness.
func AtTimestamp(now int64) Witness {
	return Witness{Kind: WitnessTimestamp, At: now}
}

// FromSignature builds a signature Witness.
func FromSignature(signer walletkey.Account) Witness {
	return Witness{Kind: WitnessSignature, Signer: signer}
}

// satisfies reports whether w discharges c.
func (c Condition) satisfies(w Witness) bool {
	switch c.Kind {
	case ConditionTimestamp:
		return w.Kind == WitnessTimestamp && w.At >= c.At
	case ConditionSignature:
		return w.Kind == WitnessSignature && w.Signer == c.Signer
	default:
		return false
	}
}

// BudgetShape distinguishes the three plan shapes a Budget can take.
type BudgetShape uint8

const (
	// ShapePay is an unconditional, immediately final payment.
	ShapePay BudgetShape = iota
	// ShapeAfter releases Branches[0] once its Condition is satisfied.
	ShapeAfter
	// ShapeRace releases whichever of Branches[0]/Branches[1] fires first.
	ShapeRace
)

// branch pairs a condition with the payment it releases.
type branch struct {
	cond Condition
	pay  Payment
}

// PlanBranch is the read-only view of a branch exposed via Inspect, for
// callers (the wire encoder) that need to serialize a Budget without
// reaching into its unexported fields.
type PlanBranch struct {
	Cond Condition
	Pay  Payment
}

// Budget is the payment-plan DSL this module implements: a sum of Pay,
// After, and Race. It is the sole variant behind the public Plan type
// (the wrapper at the end of this file), kept distinct so a future plan
// language can be added without changing the engine's three-operation
// contract.
type Budget struct {
	shape    BudgetShape
	payment  Payment // valid when shape == ShapePay
	branches [2]branch
}

// Pay builds an unconditional payment plan.
func Pay(p Payment) Budget {
	return Budget{shape: ShapePay, payment: p}
}

// After builds a plan that releases p once c is satisfied.
func After(c Condition, p Payment) Budget {
	b := Budget{shape: ShapeAfter}
	b.branches[0] = branch{cond: c, pay: p}
	return b
}

// Race builds a plan that releases whichever of (c1,p1)/(c2,p2) fires
// first, discarding the other branch.
func Race(c1 Condition, p1 Payment, c2 Condition, p2 Payment) Budget {
	b := Budget{shape: ShapeRace}
	b.branches[0] = branch{cond: c1, pay: p1}
	b.branches[1] = branch{cond: c2, pay: p2}
	return b
}

// Inspect exposes the Budget's shape, branches, and literal payment for
// serialization. It is a read-only view; callers must not mutate the
// returned values' effect on b.
func (b Budget) Inspect() (BudgetShape, [2]PlanBranch, Payment) {
	var branches [2]PlanBranch
	branches[0] = PlanBranch{Cond: b.branches[0].cond, Pay: b.branches[0].pay}
	branches[1] = PlanBranch{Cond: b.branches[1].cond, Pay: b.branches[1].pay}
	return b.shape, branches, b.payment
}

// FinalPayment returns the plan's payment iff it has already reduced to
// a literal Pay.
func (b Budget) FinalPayment() (Payment, bool) {
	if b.shape == ShapePay {
		return b.payment, true
	}
	return Payment{}, false
}

// Verify reports whether every terminal payment reachable under any
// witness sequence spends exactly spendable tokens.
func (b Budget) Verify(spendable int64) bool {
	switch b.shape {
	case ShapePay:
		return b.payment.Tokens == spendable
	case ShapeAfter:
		return b.branches[0].pay.Tokens == spendable
	case ShapeRace:
		return b.branches[0].pay.Tokens == spendable &&
			b.branches[1].pay.Tokens == spendable
	default:
		return false
	}
}

// ApplyWitness reduces the plan in place. Once a plan has become Pay,
// further witnesses are no-ops: reduction is monotone.
func (b *Budget) ApplyWitness(w Witness) {
	switch b.shape {
	case ShapePay:
		return
	case ShapeAfter:
		if b.branches[0].cond.satisfies(w) {
			*b = Pay(b.branches[0].pay)
		}
	case ShapeRace:
		if b.branches[0].cond.satisfies(w) {
			*b = Pay(b.branches[0].pay)
		} else if b.branches[1].cond.satisfies(w) {
			*b = Pay(b.branches[1].pay)
		}
	}
}

// PaymentPlan is the three-operation contract the engine depends on.
// Plan is the public sum type; Budget is presently its only variant.
type PaymentPlan interface {
	FinalPayment() (Payment, bool)
	Verify(spendable int64) bool
	ApplyWitness(w Witness)
}

// Plan wraps the underlying Budget DSL so the engine depends only on the
// PaymentPlan contract, not on Budget directly.
type Plan struct {
	Budget Budget
}

// NewPlan wraps a Budget as a Plan.
func NewPlan(b Budget) Plan { return Plan{Budget: b} }

// FinalPayment proxies to the wrapped Budget.
func (p Plan) FinalPayment() (Payment, bool) { return p.Budget.FinalPayment() }

// Verify proxies to the wrapped Budget.
func (p Plan) Verify(spendable int64) bool { return p.Budget.Verify(spendable) }

// ApplyWitness proxies to the wrapped Budget.
func (p *Plan) ApplyWitness(w Witness) { p.Budget.ApplyWitness(w) }
