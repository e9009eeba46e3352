package messages

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/dates"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
	"max.ks1230/expenses-bot/internal/model/interaction"
	"max.ks1230/expenses-bot/internal/model/ledger"
)

const (
	welcomeMessage = "👋 *Welcome to the Protocol!*\n\n" +
		"I am your *Elite Expense Intelligence* assistant. ⚔️\n\n" +
		"🛠 *System Manual*\n━━━━━━━━━━━━━\n\n" +
		"💰 *Logging:* `[Amount] [Item]`\n" +
		"📑 *Commands:*\n" +
		"• /stats — Today's briefing\n" +
		"• /setlimit [amount] — Set budget\n" +
		"• /addbill — Save a receipt\n" +
		"• /bills — View stored bills\n" +
		"• /view [number] — Open a bill\n" +
		"• /clear — Wipe today's data\n" +
		"• /logout — Lock the bot"

	accessGrantedMessage  = "🔓 Access granted. Welcome, Operative!"
	notAuthorizedMessage  = "🔒 Access denied. Send the access code to continue."
	loggedOutMessage      = "👋 Logged out. Send the access code to come back."
	sendPhotoMessage      = "📸 Send the photo of your bill."
	billLabelMessage      = "📝 What is this bill for?"
	billSavedMessage      = "✅ Bill Saved!"
	vaultEmptyMessage     = "📂 Your vault is empty."
	notFoundMessage       = "❌ Not found."
	setLimitUsageMessage  = "❌ Usage: /setlimit 1000"
	clearedMessage        = "🗑️ Today's data wiped."
	limitWarnMessage      = "⚠️ *80% BUDGET USED*"
	somethingWrongMessage = "Sorry, something wrong happened... Try later"
)

const (
	startCommand    = "/start"
	statsCommand    = "/stats"
	setLimitCommand = "/setlimit"
	addBillCommand  = "/addbill"
	billsCommand    = "/bills"
	viewCommand     = "/view"
	clearCommand    = "/clear"
	logoutCommand   = "/logout"
)

const (
	statsView = "stats"
	billsView = "bills"
)

type userStorage interface {
	GetByID(ctx context.Context, userID int64) (user.Record, error)
	SaveByID(ctx context.Context, userID int64, rec user.Record) error
}

// ReplyCache caches rendered read-only replies per user and view. A nil
// cache disables caching.
type ReplyCache interface {
	GetReply(userID int64, view string) (string, error)
	CacheReply(userID int64, view, text string) error
	InvalidateReplies(userID int64, views []string) error
}

type config interface {
	AccessSecret() string
	Timezone() string
}

// Reply is one outbound message. When PhotoID is set the reply is a
// photo and Text is its caption.
type Reply struct {
	Text    string
	PhotoID string
}

func textReply(text string) []Reply {
	return []Reply{{Text: text}}
}

type handler func(ctx context.Context, arg string, userID int64, rec user.Record) ([]Reply, error)

type handlerMap map[string]handler

type HandlerService struct {
	handlersMap handlerMap
	storage     userStorage
	tracker     *interaction.Tracker
	cache       ReplyCache
	secret      string
	loc         *time.Location
	locks       userLocks
}

func newHandler(storage userStorage, tracker *interaction.Tracker, cache ReplyCache, config config) *HandlerService {
	res := &HandlerService{
		handlersMap: nil,
		storage:     storage,
		tracker:     tracker,
		cache:       cache,
		secret:      config.AccessSecret(),
		loc:         dates.Location(config.Timezone()),
	}
	res.handlersMap = newMap(res)
	return res
}

func newMap(s *HandlerService) handlerMap {
	m := make(handlerMap)
	m[startCommand] = s.handleStart
	m[statsCommand] = s.handleStats
	m[setLimitCommand] = s.handleSetLimit
	m[addBillCommand] = s.handleAddBill
	m[billsCommand] = s.handleBills
	m[viewCommand] = s.handleView
	m[clearCommand] = s.handleClear
	m[logoutCommand] = s.handleLogout

	m[""] = s.handleFreeText

	return m
}

// HandleMessage classifies one incoming event and applies it. Precedence:
// access gate, then an active capture flow, then commands, then free-text
// expense logging. Anything else is inert.
func (s *HandlerService) HandleMessage(ctx context.Context, msg Message) ([]Reply, error) {
	if msg.UserID == 0 {
		// channel posts and other authorless updates
		logger.Debug("dropped message without sender identity")
		return nil, nil
	}

	unlock := s.locks.lock(msg.UserID)
	defer unlock()

	rec, err := s.storage.GetByID(ctx, msg.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "handle message")
	}

	if s.secret != "" && msg.Text == s.secret {
		rec.Authorized = true
		if err = s.storage.SaveByID(ctx, msg.UserID, rec); err != nil {
			return nil, errors.Wrap(err, "handle message")
		}
		return textReply(accessGrantedMessage), nil
	}
	if !rec.Authorized {
		return textReply(notAuthorizedMessage), nil
	}

	cmd, arg := parseCommand(msg.Text)

	// An active capture flow consumes any non-command payload. Commands
	// stay reachable so /addbill can restart the flow mid-way.
	if st, active := s.tracker.Get(msg.UserID); active && cmd == "" {
		return s.advanceCapture(ctx, st, msg, rec)
	}

	if h, ok := s.handlersMap[cmd]; ok {
		return h(ctx, arg, msg.UserID, rec)
	}
	return nil, nil
}

// advanceCapture feeds one event into the bill-capture flow. A payload
// of the wrong kind for the current step is dropped without a reply,
// matching the bot's long-standing behavior.
func (s *HandlerService) advanceCapture(ctx context.Context, st interaction.State, msg Message, rec user.Record) ([]Reply, error) {
	switch {
	case st.Step == interaction.StepAwaitingPhoto && len(msg.Photos) > 0:
		s.tracker.PhotoCaptured(msg.UserID, largestPhoto(msg.Photos))
		return textReply(billLabelMessage), nil

	case st.Step == interaction.StepAwaitingLabel && msg.Text != "":
		ledger.SaveBill(&rec, msg.Text, st.FileID, s.today())
		if err := s.storage.SaveByID(ctx, msg.UserID, rec); err != nil {
			return nil, errors.Wrap(err, "save bill")
		}
		s.tracker.Clear(msg.UserID)
		s.invalidateViews(msg.UserID)
		return textReply(billSavedMessage), nil
	}

	logger.Debug("dropped mismatched payload for active capture flow",
		zap.Int64("userID", msg.UserID))
	return nil, nil
}

func (s *HandlerService) handleStart(_ context.Context, _ string, _ int64, _ user.Record) ([]Reply, error) {
	return textReply(welcomeMessage), nil
}

func (s *HandlerService) handleFreeText(ctx context.Context, arg string, userID int64, rec user.Record) ([]Reply, error) {
	tokens := strings.Fields(arg)
	if len(tokens) == 0 {
		return nil, nil
	}
	amount, ok := ledger.ParseAmount(tokens[0])
	if !ok {
		// stray chatter, not an expense
		return nil, nil
	}

	now := time.Now().In(s.loc)
	item := strings.Join(tokens[1:], " ")
	total, alert := ledger.LogExpense(&rec, amount, item, dates.Day(now), dates.MonthTag(now))

	if err := s.storage.SaveByID(ctx, userID, rec); err != nil {
		return nil, errors.Wrap(err, "log expense")
	}
	s.invalidateViews(userID)

	replies := textReply("✅ Logged: " + currencySign + formatAmount(amount))
	switch alert {
	case ledger.AlertExceeded:
		replies = append(replies, Reply{Text: "🚨 *LIMIT EXCEEDED:* " + currencySign + formatAmount(total)})
	case ledger.AlertWarn:
		replies = append(replies, Reply{Text: limitWarnMessage})
	}
	return replies, nil
}

func (s *HandlerService) handleStats(_ context.Context, _ string, userID int64, rec user.Record) ([]Reply, error) {
	day := s.today()
	view := statsView + ":" + day
	if cached, ok := s.cachedReply(userID, view); ok {
		return textReply(cached), nil
	}

	text := formatStats(day, ledger.DayEntries(rec, day))
	s.cacheReply(userID, view, text)
	return textReply(text), nil
}

func (s *HandlerService) handleSetLimit(ctx context.Context, arg string, userID int64, rec user.Record) ([]Reply, error) {
	tokens := strings.Fields(arg)
	if len(tokens) == 0 {
		return textReply(setLimitUsageMessage), nil
	}
	amount, ok := ledger.ParseAmount(tokens[0])
	if !ok {
		return textReply(setLimitUsageMessage), nil
	}

	ledger.SetLimit(&rec, amount)
	if err := s.storage.SaveByID(ctx, userID, rec); err != nil {
		return nil, errors.Wrap(err, "set limit")
	}
	return textReply("🎯 Limit set to " + currencySign + formatAmount(amount) + "."), nil
}

func (s *HandlerService) handleAddBill(_ context.Context, _ string, userID int64, _ user.Record) ([]Reply, error) {
	s.tracker.StartCapture(userID)
	return textReply(sendPhotoMessage), nil
}

func (s *HandlerService) handleBills(_ context.Context, _ string, userID int64, rec user.Record) ([]Reply, error) {
	if len(rec.Vault) == 0 {
		return textReply(vaultEmptyMessage), nil
	}
	if cached, ok := s.cachedReply(userID, billsView); ok {
		return textReply(cached), nil
	}

	text := formatBills(rec.Vault)
	s.cacheReply(userID, billsView, text)
	return textReply(text), nil
}

func (s *HandlerService) handleView(_ context.Context, arg string, _ int64, rec user.Record) ([]Reply, error) {
	tokens := strings.Fields(arg)
	if len(tokens) == 0 {
		return textReply(notFoundMessage), nil
	}
	index, err := strconv.Atoi(tokens[0])
	if err != nil {
		return textReply(notFoundMessage), nil
	}
	bill, ok := ledger.Bill(rec, index)
	if !ok {
		return textReply(notFoundMessage), nil
	}
	return []Reply{{PhotoID: bill.FileID, Text: formatBillCaption(bill)}}, nil
}

func (s *HandlerService) handleClear(ctx context.Context, _ string, userID int64, rec user.Record) ([]Reply, error) {
	ledger.ClearDay(&rec, s.today())
	if err := s.storage.SaveByID(ctx, userID, rec); err != nil {
		return nil, errors.Wrap(err, "clear day")
	}
	s.invalidateViews(userID)
	return textReply(clearedMessage), nil
}

func (s *HandlerService) handleLogout(ctx context.Context, _ string, userID int64, rec user.Record) ([]Reply, error) {
	rec.Authorized = false
	if err := s.storage.SaveByID(ctx, userID, rec); err != nil {
		return nil, errors.Wrap(err, "logout")
	}
	return textReply(loggedOutMessage), nil
}

func (s *HandlerService) today() string {
	return dates.Day(time.Now().In(s.loc))
}

func (s *HandlerService) cachedReply(userID int64, view string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, err := s.cache.GetReply(userID, view)
	if err != nil {
		return "", false
	}
	return text, true
}

func (s *HandlerService) cacheReply(userID int64, view, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheReply(userID, view, text); err != nil {
		logger.Error("failed to cache reply", zap.Error(err), zap.Int64("userID", userID))
	}
}

func (s *HandlerService) invalidateViews(userID int64) {
	if s.cache == nil {
		return
	}
	views := []string{statsView + ":" + s.today(), billsView}
	if err := s.cache.InvalidateReplies(userID, views); err != nil {
		logger.Error("failed to invalidate replies", zap.Error(err), zap.Int64("userID", userID))
	}
}

// userLocks serializes handling per user id so a read-modify-write on a
// record never interleaves with another for the same user.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	lk, ok := l.m[userID]
	if !ok {
		lk = &sync.Mutex{}
		l.m[userID] = lk
	}
	l.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}
