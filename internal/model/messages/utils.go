package messages

import (
	"fmt"
	"strconv"
	"strings"

	"max.ks1230/expenses-bot/internal/entity/user"
)

const commandParts = 2

const currencySign = "₹"

// parseCommand splits text into a slash command and its argument. Text
// without a leading slash is all argument.
func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	split := strings.SplitN(text, " ", commandParts)
	if len(split) == commandParts {
		return split[0], split[1]
	}
	return text, ""
}

// largestPhoto picks the reference id of the highest-resolution variant.
func largestPhoto(photos []Photo) string {
	best := photos[0]
	for _, p := range photos[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best.FileID
}

// formatAmount renders amounts the way users type them: no forced
// decimals, no exponent.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func formatStats(day string, entries []user.ExpenseEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📊 *Briefing for %s*\n\nNo records.", day)
	}

	lines := make([]string, 0, len(entries)+3)
	lines = append(lines, fmt.Sprintf("📊 *Briefing for %s*\n━━━━━━━━━━━━━\n", day))
	total := 0.0
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %s: %s%s", e.Item, currencySign, formatAmount(e.Amount)))
		total += e.Amount
	}
	lines = append(lines, "", fmt.Sprintf("💰 *Total: %s%s*", currencySign, formatAmount(total)))
	return strings.Join(lines, "\n")
}

func formatBills(vault []user.BillEntry) string {
	lines := make([]string, 0, len(vault)+2)
	lines = append(lines, "📂 *Stored Bills*\n━━━━━━━━━━━━━\n")
	for i, b := range vault {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, b.Label, b.Date))
	}
	lines = append(lines, "", "*View one:* `/view [number]`")
	return strings.Join(lines, "\n")
}

func formatBillCaption(bill user.BillEntry) string {
	return fmt.Sprintf("📄 *Bill:* %s\n📅 *Date:* %s", bill.Label, bill.Date)
}
