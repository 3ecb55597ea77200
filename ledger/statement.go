package ledger

import (
	"sort"
	"time"
)

// =============================================================================
// CUSTOMER STATEMENT - Chronological view with running balance
// =============================================================================

type EntryKind string

const (
	EntrySale    EntryKind = "sale"
	EntryAdvance EntryKind = "advance"
	EntryPayment EntryKind = "payment"
)

// StatementEntry is one line of a customer statement. Exactly one of Debit
// and Credit is non-zero.
type StatementEntry struct {
	At          time.Time
	Kind        EntryKind
	RecordID    RecordID
	Description string
	Debit       Amount
	Credit      Amount
	Balance     Amount // running balance after this entry
}

// CustomerStatement lists every record touching the customer in time order.
// Entries with equal timestamps keep sales, then advances, then payments,
// each in collection order. The last running balance equals CustomerBalance.
func CustomerStatement(id CustomerID, sales []Sale, advances []CashAdvance, payments []CustomerPayment) []StatementEntry {
	entries := make([]StatementEntry, 0)

	for _, s := range sales {
		if s.IsWalkIn() || s.CustomerID != id {
			continue
		}
		entries = append(entries, StatementEntry{
			At:          s.At,
			Kind:        EntrySale,
			RecordID:    s.ID,
			Description: s.Volume.Fixed() + " L " + s.FuelType.Label(),
			Debit:       s.Total,
			Credit:      ZeroMoney(),
		})
	}
	for _, a := range advances {
		if a.CustomerID != id {
			continue
		}
		entries = append(entries, StatementEntry{
			At:          a.At,
			Kind:        EntryAdvance,
			RecordID:    a.ID,
			Description: a.Purpose,
			Debit:       a.Amount,
			Credit:      ZeroMoney(),
		})
	}
	for _, p := range payments {
		if p.CustomerID != id {
			continue
		}
		entries = append(entries, StatementEntry{
			At:          p.At,
			Kind:        EntryPayment,
			RecordID:    p.ID,
			Description: p.Note,
			Debit:       ZeroMoney(),
			Credit:      p.Amount,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})

	running := ZeroMoney()
	for i := range entries {
		running = running.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Balance = running
	}
	return entries
}
