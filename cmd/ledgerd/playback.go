package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
	"github.com/hleb-albau/ledgercore/pkg/ledger"
)

// playbackFile is the on-disk shape of a demo run: a named cast of
// actors (each a 32-byte hex private scalar, for reproducibility across
// runs), a genesis mint, and a sequence of entries to replay through
// the engine's batch pipeline.
type playbackFile struct {
	Actors  map[string]string `json:"actors"`
	Mint    playbackMint      `json:"mint"`
	Entries []playbackEntry   `json:"entries"`
}

type playbackMint struct {
	Actor  string `json:"actor"`
	Tokens int64  `json:"tokens"`
}

type playbackEntry struct {
	Transactions []playbackTransaction `json:"transactions"`
}

// playbackTransaction is a tagged union over the three instruction
// kinds the engine understands. Only the fields relevant to Kind are
// read. ID, when set, lets a later apply_signature transaction target
// this one by name instead of by raw signature hex.
type playbackTransaction struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // transfer | transfer_on_date | apply_timestamp | apply_signature
	From      string `json:"from"`
	To        string `json:"to"`
	Tokens    int64  `json:"tokens"`
	Fee       int64  `json:"fee"`
	At        int64  `json:"at"`
	TargetRef string `json:"target_ref"`
}

// loadPlayback parses a playback file from path.
func loadPlayback(path string) (*playbackFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playback file: %w", err)
	}
	var pf playbackFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse playback file: %w", err)
	}
	return &pf, nil
}

// buildTransaction turns a playbackTransaction into a signed
// ledger.Transaction anchored to fp, resolving actor names against
// cast. The resulting signature is always populated, even if the
// transaction is later rejected at admission.
func buildTransaction(cast map[string]*walletkey.KeyPair, sigByID map[string]walletkey.Signature, txn playbackTransaction, fp ledger.Fingerprint, clk clock.Clock) (ledger.Transaction, error) {
	from, ok := cast[txn.From]
	if !ok {
		return ledger.Transaction{}, fmt.Errorf("actor %q not found", txn.From)
	}

	var instr ledger.Instruction
	switch txn.Kind {
	case "transfer":
		to, ok := cast[txn.To]
		if !ok {
			return ledger.Transaction{}, fmt.Errorf("actor %q not found", txn.To)
		}
		plan := planlang.NewPlan(planlang.Pay(planlang.Payment{Tokens: txn.Tokens - txn.Fee, To: to.Account()}))
		instr = ledger.NewContractInstruction(ledger.Contract{Tokens: txn.Tokens, Plan: plan})
		return ledger.NewTransaction(from, instr, fp, txn.Fee), nil

	case "transfer_on_date":
		to, ok := cast[txn.To]
		if !ok {
			return ledger.Transaction{}, fmt.Errorf("actor %q not found", txn.To)
		}
		budget := planlang.Race(
			planlang.Timestamp(txn.At), planlang.Payment{Tokens: txn.Tokens, To: to.Account()},
			planlang.SignedBy(from.Account()), planlang.Payment{Tokens: txn.Tokens, To: from.Account()},
		)
		plan := planlang.NewPlan(budget)
		instr = ledger.NewContractInstruction(ledger.Contract{Tokens: txn.Tokens, Plan: plan})
		return ledger.NewTransaction(from, instr, fp, 0), nil

	case "apply_timestamp":
		at := txn.At
		if at == 0 {
			at = clk.Now().UnixNano()
		}
		instr = ledger.ApplyTimestampInstruction(at)
		return ledger.NewTransaction(from, instr, fp, 0), nil

	case "apply_signature":
		target, ok := sigByID[txn.TargetRef]
		if !ok {
			return ledger.Transaction{}, fmt.Errorf("target_ref %q not found", txn.TargetRef)
		}
		instr = ledger.ApplySignatureInstruction(target)
		return ledger.NewTransaction(from, instr, fp, 0), nil

	default:
		return ledger.Transaction{}, fmt.Errorf("unknown transaction kind %q", txn.Kind)
	}
}

// runPlayback builds an engine from pf's mint and replays every entry's
// transactions through Engine.ProcessTransactions, registering the
// entry's own fingerprint only after its batch has been processed. It
// returns the engine, every actor's account, and the signature recorded
// under every ID-tagged transaction.
func runPlayback(pf *playbackFile, clk clock.Clock, windowCapacity int) (*ledger.Engine, map[string]walletkey.Account, map[string]walletkey.Signature, error) {
	cast := make(map[string]*walletkey.KeyPair, len(pf.Actors))
	accounts := make(map[string]walletkey.Account, len(pf.Actors))
	for name, seedHex := range pf.Actors {
		seed, err := hex.DecodeString(seedHex)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("actor %q: decode seed: %w", name, err)
		}
		kp, err := walletkey.KeyPairFromSeed(seed)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("actor %q: %w", name, err)
		}
		cast[name] = kp
		accounts[name] = kp.Account()
	}

	mintKeyPair, ok := cast[pf.Mint.Actor]
	if !ok {
		return nil, nil, nil, fmt.Errorf("mint actor %q not found in cast", pf.Mint.Actor)
	}
	genesisFP := ledger.HashFingerprint([]byte("playback-genesis"))
	mint := ledger.Mint{Account: mintKeyPair.Account(), Tokens: pf.Mint.Tokens, Fingerprint: genesisFP}
	engine := ledger.NewFromMintWithWindow(mint, windowCapacity)

	sigByID := make(map[string]walletkey.Signature)
	anchor := genesisFP

	for entryIndex, pe := range pf.Entries {
		entryFP := ledger.HashFingerprint([]byte(fmt.Sprintf("playback-entry-%d", entryIndex)))

		txns := make([]ledger.Transaction, 0, len(pe.Transactions))
		ids := make([]string, 0, len(pe.Transactions))
		for _, txn := range pe.Transactions {
			tx, err := buildTransaction(cast, sigByID, txn, anchor, clk)
			if err != nil {
				return engine, accounts, sigByID, fmt.Errorf("entry %d: %w", entryIndex, err)
			}
			txns = append(txns, tx)
			ids = append(ids, txn.ID)
		}

		results := engine.ProcessTransactions(txns)
		for i, err := range results {
			if ids[i] != "" {
				sigByID[ids[i]] = txns[i].Sig
			}
			if err != nil {
				return engine, accounts, sigByID, fmt.Errorf("entry %d transaction %d: %w", entryIndex, i, err)
			}
		}

		engine.RegisterFingerprint(entryFP)
		anchor = entryFP
	}

	return engine, accounts, sigByID, nil
}
