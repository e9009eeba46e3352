package reports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"max.ks1230/expenses-bot/internal/dates"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/ledger"
)

const (
	CadenceDaily   = "daily"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

// The weekly digest covers a fixed count of newest entries, not a
// calendar week.
const weeklyWindow = 30

const currencySign = "₹"

type usersProvider interface {
	GetAll(ctx context.Context) (map[int64]user.Record, error)
}

type config interface {
	Timezone() string
}

// Digest is one rendered report ready for delivery.
type Digest struct {
	UserID int64
	Text   string
}

// Generator computes per-user digests for a cadence. It never mutates
// storage.
type Generator struct {
	storage usersProvider
	loc     *time.Location
}

func NewGenerator(config config, storage usersProvider) *Generator {
	return &Generator{
		storage: storage,
		loc:     dates.Location(config.Timezone()),
	}
}

// Generate renders the cadence's digest for every eligible user with
// matching entries. The monthly cadence only produces output when the
// reference day is the last of its month.
func (g *Generator) Generate(ctx context.Context, cadence string, at time.Time, eligible func(user.Record) bool) ([]Digest, error) {
	logger.Info("Generate - start", zap.String("cadence", cadence))
	defer logger.Info("Generate - end")

	span, ctx := opentracing.StartSpanFromContext(ctx, "generateDigests")
	defer span.Finish()
	span.SetTag("cadence", cadence)

	at = at.In(g.loc)
	if cadence == CadenceMonthly && !dates.IsMonthEnd(at) {
		return nil, nil
	}

	all, err := g.storage.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "generate digests")
	}

	digests := make([]Digest, 0)
	for id, rec := range all {
		if eligible != nil && !eligible(rec) {
			continue
		}

		var text string
		switch cadence {
		case CadenceDaily:
			text = dailyDigest(rec, dates.Day(at))
		case CadenceWeekly:
			text = weeklyDigest(rec)
		case CadenceMonthly:
			text = monthlyDigest(rec, dates.MonthTag(at))
		default:
			return nil, errors.Wrap(
				fmt.Errorf("cadence %s is not supported", cadence),
				"generate digests",
			)
		}
		if text == "" {
			continue
		}
		digests = append(digests, Digest{UserID: id, Text: text})
	}
	return digests, nil
}

func dailyDigest(rec user.Record, day string) string {
	entries := ledger.DayEntries(rec, day)
	if len(entries) == 0 {
		return ""
	}

	lines := make([]string, 0, len(entries)+3)
	lines = append(lines, "🌙 *Daily Report*", "")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %s: %s%s", e.Item, currencySign, formatAmount(e.Amount)))
	}
	lines = append(lines, "", fmt.Sprintf("💰 *Total: %s%s*", currencySign, formatAmount(ledger.Sum(entries))))
	return strings.Join(lines, "\n")
}

func weeklyDigest(rec user.Record) string {
	entries := ledger.LastEntries(rec, weeklyWindow)
	if len(entries) == 0 {
		return ""
	}

	// group by day, groups ordered by first occurrence
	order := make([]string, 0)
	groups := make(map[string][]user.ExpenseEntry)
	for _, e := range entries {
		if _, ok := groups[e.Date]; !ok {
			order = append(order, e.Date)
		}
		groups[e.Date] = append(groups[e.Date], e)
	}

	var b strings.Builder
	b.WriteString("📊 *Weekly Audit*\n━━━━━━━━━━━━━\n\n")
	for _, day := range order {
		b.WriteString(fmt.Sprintf("📅 *%s*\n", day))
		for _, e := range groups[day] {
			b.WriteString(fmt.Sprintf("  • %s: %s%s\n", e.Item, currencySign, formatAmount(e.Amount)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func monthlyDigest(rec user.Record, month int) string {
	entries := ledger.MonthEntries(rec, month)
	if len(entries) == 0 {
		return ""
	}
	return fmt.Sprintf("🗓️ *Monthly Intel*\nTotal spent: *%s%s*\nCheck /bills for receipts.",
		currencySign, formatAmount(ledger.Sum(entries)))
}
