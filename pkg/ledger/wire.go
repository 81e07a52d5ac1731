package ledger

import (
	"bytes"
	"encoding/binary"

	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// Wire-visible byte offsets (spec §6): the serialized Transaction must
// place these fields at these exact byte positions so that an external
// hardware-accelerated verifier can slice a transaction without parsing
// it. signData's output below is placed at SignedDataOffset inside
// Transaction.Bytes().
const (
	SigOffset        = 8
	PubKeyOffset     = 80
	SignedDataOffset = 112
)

// sizes of the fixed header fields preceding the signed region, used to
// place SigOffset/PubKeyOffset/SignedDataOffset exactly.
const (
	headerPad1 = SigOffset                                  // leading pad before sig
	sigField   = walletkey.SignatureSize                     // 73
	pad2       = PubKeyOffset - (SigOffset + sigField)       // pad between sig and pubkey
	pubField   = walletkey.AccountSize                       // 33
	pad3       = SignedDataOffset - (PubKeyOffset + pubField) // pad between pubkey and signed data
)

func init() {
	if headerPad1 < 0 || pad2 < 0 || pad3 < 0 {
		panic("ledger: wire layout constants are inconsistent")
	}
}

// encodeInstruction writes instr's canonical byte encoding: a one-byte
// tag followed by the shape-specific fields, fixed-width throughout.
// This package has no matching decoder.
func encodeInstruction(buf *bytes.Buffer, instr Instruction) {
	binary.Write(buf, binary.BigEndian, instr.Kind)
	switch instr.Kind {
	case InstructionNewContract:
		binary.Write(buf, binary.BigEndian, instr.Contract.Tokens)
		encodeBudget(buf, instr.Contract.Plan.Budget)
	case InstructionApplyTimestamp:
		binary.Write(buf, binary.BigEndian, instr.Timestamp)
	case InstructionApplySignature:
		buf.Write(instr.TargetSig[:])
	}
}

func encodeBudget(buf *bytes.Buffer, b planlang.Budget) {
	shape, branches, pay := b.Inspect()
	binary.Write(buf, binary.BigEndian, shape)
	switch shape {
	case planlang.ShapePay:
		encodePayment(buf, pay)
	case planlang.ShapeAfter:
		encodeCondition(buf, branches[0].Cond)
		encodePayment(buf, branches[0].Pay)
	case planlang.ShapeRace:
		encodeCondition(buf, branches[0].Cond)
		encodePayment(buf, branches[0].Pay)
		encodeCondition(buf, branches[1].Cond)
		encodePayment(buf, branches[1].Pay)
	}
}

func encodeCondition(buf *bytes.Buffer, c planlang.Condition) {
	binary.Write(buf, binary.BigEndian, c.Kind)
	binary.Write(buf, binary.BigEndian, c.At)
	buf.Write(c.Signer[:])
}

func encodePayment(buf *bytes.Buffer, p planlang.Payment) {
	binary.Write(buf, binary.BigEndian, p.Tokens)
	buf.Write(p.To[:])
}

// signData returns the canonical sign-data: encode(instruction) ||
// encode(fingerprint) || encode(fee). This is what Sign/VerifySig
// operate over (spec §4.2).
func signData(instr Instruction, fp Fingerprint, fee int64) []byte {
	buf := new(bytes.Buffer)
	encodeInstruction(buf, instr)
	buf.Write(fp[:])
	binary.Write(buf, binary.BigEndian, fee)
	return buf.Bytes()
}

// Bytes serializes tx so that Sig, From, and the signed region land at
// SigOffset, PubKeyOffset, and SignedDataOffset respectively, matching
// the layout external signature-verification pipelines expect.
func (tx Transaction) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, headerPad1))
	buf.Write(tx.Sig[:])
	buf.Write(make([]byte, pad2))
	buf.Write(tx.From[:])
	buf.Write(make([]byte, pad3))
	buf.Write(signData(tx.Instruction, tx.Fingerprint, tx.Fee))
	return buf.Bytes()
}
