// Package ledger holds the pure mutation and aggregation logic over a
// user record. Nothing here talks to storage or the transport.
package ledger

import (
	"math"
	"strconv"

	"max.ks1230/expenses-bot/internal/entity/user"
)

const defaultItem = "Misc"

const warnFraction = 0.8

// Alert is the advisory limit state after logging an expense. Alerts
// never block the expense itself.
type Alert int

const (
	AlertNone Alert = iota
	AlertWarn
	AlertExceeded
)

// ParseAmount parses a token as a finite decimal amount. Inf and NaN
// spellings are rejected even though they parse as floats.
func ParseAmount(token string) (float64, bool) {
	amount, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	return amount, true
}

// LogExpense appends an entry and returns the day's running total along
// with the limit alert to raise, if any.
func LogExpense(rec *user.Record, amount float64, item, day string, month int) (float64, Alert) {
	if item == "" {
		item = defaultItem
	}
	rec.Logs = append(rec.Logs, user.ExpenseEntry{
		Amount: amount,
		Item:   item,
		Date:   day,
		Month:  month,
	})

	total := DayTotal(*rec, day)
	switch {
	case rec.DailyLimit <= 0:
		return total, AlertNone
	case total >= rec.DailyLimit:
		return total, AlertExceeded
	case total >= rec.DailyLimit*warnFraction:
		return total, AlertWarn
	}
	return total, AlertNone
}

// SetLimit overwrites the daily limit unconditionally.
func SetLimit(rec *user.Record, amount float64) {
	rec.DailyLimit = amount
}

// ClearDay removes exactly the entries stamped with the given day. The
// vault is untouched. Idempotent.
func ClearDay(rec *user.Record, day string) {
	kept := make([]user.ExpenseEntry, 0, len(rec.Logs))
	for _, e := range rec.Logs {
		if e.Date != day {
			kept = append(kept, e)
		}
	}
	rec.Logs = kept
}

// SaveBill appends a labelled receipt reference to the vault.
func SaveBill(rec *user.Record, label, fileID, day string) {
	rec.Vault = append(rec.Vault, user.BillEntry{
		Label:  label,
		FileID: fileID,
		Date:   day,
	})
}

// DayEntries filters the log to one calendar day, insertion order kept.
func DayEntries(rec user.Record, day string) []user.ExpenseEntry {
	res := make([]user.ExpenseEntry, 0)
	for _, e := range rec.Logs {
		if e.Date == day {
			res = append(res, e)
		}
	}
	return res
}

// DayTotal sums the amounts logged on one calendar day.
func DayTotal(rec user.Record, day string) float64 {
	var total float64
	for _, e := range rec.Logs {
		if e.Date == day {
			total += e.Amount
		}
	}
	return total
}

// MonthEntries filters the log by stored month tag.
func MonthEntries(rec user.Record, month int) []user.ExpenseEntry {
	res := make([]user.ExpenseEntry, 0)
	for _, e := range rec.Logs {
		if e.Month == month {
			res = append(res, e)
		}
	}
	return res
}

// LastEntries returns the newest n log entries, insertion order kept.
func LastEntries(rec user.Record, n int) []user.ExpenseEntry {
	if len(rec.Logs) <= n {
		return rec.Logs
	}
	return rec.Logs[len(rec.Logs)-n:]
}

// Bill looks up a vault entry by 1-based index.
func Bill(rec user.Record, index int) (user.BillEntry, bool) {
	if index < 1 || index > len(rec.Vault) {
		return user.BillEntry{}, false
	}
	return rec.Vault[index-1], true
}

// Sum totals a slice of entries.
func Sum(entries []user.ExpenseEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
