package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/expenses-bot/internal/dates"
	"max.ks1230/expenses-bot/internal/model/interaction"
	"max.ks1230/expenses-bot/internal/model/storage"
)

const testSecret = "open-sesame"

type testConfig struct {
	secret string
}

func (c testConfig) AccessSecret() string { return c.secret }
func (c testConfig) Timezone() string     { return "UTC" }

func newTestHandler(t *testing.T) (*HandlerService, *storage.InMemStorage) {
	t.Helper()
	st := storage.NewInMemStorage()
	h := newHandler(st, interaction.NewTracker(), nil, testConfig{secret: testSecret})
	return h, st
}

func authorize(t *testing.T, h *HandlerService, userID int64) {
	t.Helper()
	replies, err := h.HandleMessage(context.Background(), Message{Text: testSecret, UserID: userID})
	require.NoError(t, err)
	require.Equal(t, textReply(accessGrantedMessage), replies)
}

func today() string {
	return dates.Day(time.Now().UTC())
}

func Test_UnauthorizedUser_ShouldBeBlockedWithoutMutation(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)

	replies, err := h.HandleMessage(ctx, Message{Text: "250 Coffee", UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(notAuthorizedMessage), replies)

	rec, _ := st.GetByID(ctx, 123)
	assert.Empty(t, rec.Logs)
	assert.False(t, rec.Authorized)
}

func Test_ExactSecret_ShouldGrantAccess(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)

	// near-misses stay blocked: the comparison is exact, untrimmed
	for _, text := range []string{"OPEN-SESAME", " " + testSecret, testSecret + " "} {
		replies, err := h.HandleMessage(ctx, Message{Text: text, UserID: 123})
		assert.NoError(t, err)
		assert.Equal(t, textReply(notAuthorizedMessage), replies, text)
	}

	authorize(t, h, 123)
	rec, _ := st.GetByID(ctx, 123)
	assert.True(t, rec.Authorized)

	// granted on the very next event
	replies, err := h.HandleMessage(ctx, Message{Text: startCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(welcomeMessage), replies)
}

func Test_Logout_ShouldStripAccess(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: logoutCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(loggedOutMessage), replies)

	replies, err = h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(notAuthorizedMessage), replies)
}

func Test_MissingIdentity_ShouldBeDroppedSilently(t *testing.T) {
	h, _ := newTestHandler(t)

	replies, err := h.HandleMessage(context.Background(), Message{Text: "250 Coffee"})
	assert.NoError(t, err)
	assert.Nil(t, replies)
}

func Test_FreeText_ShouldLogExpense(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: "250 Coffee", UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "250")

	rec, _ := st.GetByID(ctx, 123)
	require.Len(t, rec.Logs, 1)
	assert.Equal(t, 250.0, rec.Logs[0].Amount)
	assert.Equal(t, "Coffee", rec.Logs[0].Item)
	assert.Equal(t, today(), rec.Logs[0].Date)
}

func Test_FreeText_ShouldDefaultItemToMisc(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	_, err := h.HandleMessage(ctx, Message{Text: "99.5", UserID: 123})
	assert.NoError(t, err)

	rec, _ := st.GetByID(ctx, 123)
	require.Len(t, rec.Logs, 1)
	assert.Equal(t, "Misc", rec.Logs[0].Item)
}

func Test_BadFreeText_ShouldBeInert(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	for _, text := range []string{"bad input", "NaN Coffee", "/unknown", ""} {
		replies, err := h.HandleMessage(ctx, Message{Text: text, UserID: 123})
		assert.NoError(t, err)
		assert.Nil(t, replies, text)
	}

	rec, _ := st.GetByID(ctx, 123)
	assert.Empty(t, rec.Logs)
}

func Test_LimitAlerts_ShouldFireAtThresholds(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: "/setlimit 100", UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "100")

	replies, err = h.HandleMessage(ctx, Message{Text: "60 Lunch", UserID: 123})
	assert.NoError(t, err)
	assert.Len(t, replies, 1, "below the warn threshold logs without an alert")

	replies, err = h.HandleMessage(ctx, Message{Text: "25 Snacks", UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, limitWarnMessage, replies[1].Text)

	replies, err = h.HandleMessage(ctx, Message{Text: "20 Taxi", UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1].Text, "LIMIT EXCEEDED")
	assert.Contains(t, replies[1].Text, "105")
}

func Test_SetLimit_ShouldRejectBadAmount(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	for _, text := range []string{"/setlimit", "/setlimit much", "/setlimit Inf"} {
		replies, err := h.HandleMessage(ctx, Message{Text: text, UserID: 123})
		assert.NoError(t, err)
		assert.Equal(t, textReply(setLimitUsageMessage), replies, text)
	}

	rec, _ := st.GetByID(ctx, 123)
	assert.Equal(t, 0.0, rec.DailyLimit)
}

func Test_Stats_ShouldListTodayAndTotal(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "No records")

	_, _ = h.HandleMessage(ctx, Message{Text: "250 Coffee", UserID: 123})
	_, _ = h.HandleMessage(ctx, Message{Text: "50 Tea", UserID: 123})

	replies, err = h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Coffee: ₹250")
	assert.Contains(t, replies[0].Text, "Tea: ₹50")
	assert.Contains(t, replies[0].Text, "Total: ₹300")
}

func Test_Clear_ShouldWipeOnlyToday(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	_, _ = h.HandleMessage(ctx, Message{Text: "250 Coffee", UserID: 123})

	// seed an older entry directly
	rec, _ := st.GetByID(ctx, 123)
	old := rec.Logs[0]
	old.Date = "01/01/2020"
	rec.Logs = append(rec.Logs, old)
	_ = st.SaveByID(ctx, 123, rec)

	replies, err := h.HandleMessage(ctx, Message{Text: clearCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(clearedMessage), replies)

	rec, _ = st.GetByID(ctx, 123)
	require.Len(t, rec.Logs, 1)
	assert.Equal(t, "01/01/2020", rec.Logs[0].Date)

	// idempotent
	_, err = h.HandleMessage(ctx, Message{Text: clearCommand, UserID: 123})
	assert.NoError(t, err)
	rec2, _ := st.GetByID(ctx, 123)
	assert.Equal(t, rec.Logs, rec2.Logs)
}

func Test_BillCapture_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: addBillCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(sendPhotoMessage), replies)

	photos := []Photo{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "large", Width: 800, Height: 600},
	}
	replies, err = h.HandleMessage(ctx, Message{UserID: 123, Photos: photos})
	assert.NoError(t, err)
	assert.Equal(t, textReply(billLabelMessage), replies)

	replies, err = h.HandleMessage(ctx, Message{Text: "Lunch", UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(billSavedMessage), replies)

	rec, _ := st.GetByID(ctx, 123)
	require.Len(t, rec.Vault, 1)
	assert.Equal(t, "Lunch", rec.Vault[0].Label)
	assert.Equal(t, "large", rec.Vault[0].FileID)
	assert.Equal(t, today(), rec.Vault[0].Date)

	// flow is closed: the next text is a plain (inert) message again
	replies, err = h.HandleMessage(ctx, Message{Text: "thanks", UserID: 123})
	assert.NoError(t, err)
	assert.Nil(t, replies)
}

func Test_BillCapture_ShouldDropMismatchedPayloads(t *testing.T) {
	ctx := context.Background()
	h, st := newTestHandler(t)
	authorize(t, h, 123)

	_, _ = h.HandleMessage(ctx, Message{Text: addBillCommand, UserID: 123})

	// text while a photo is expected: dropped, flow unchanged
	replies, err := h.HandleMessage(ctx, Message{Text: "hello", UserID: 123})
	assert.NoError(t, err)
	assert.Nil(t, replies)

	replies, err = h.HandleMessage(ctx, Message{UserID: 123, Photos: []Photo{{FileID: "f", Width: 1, Height: 1}}})
	assert.NoError(t, err)
	assert.Equal(t, textReply(billLabelMessage), replies)

	// photo while a label is expected: dropped as well
	replies, err = h.HandleMessage(ctx, Message{UserID: 123, Photos: []Photo{{FileID: "g", Width: 1, Height: 1}}})
	assert.NoError(t, err)
	assert.Nil(t, replies)

	rec, _ := st.GetByID(ctx, 123)
	assert.Empty(t, rec.Vault)
}

func Test_AddBillMidFlow_ShouldRestartCapture(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	authorize(t, h, 123)

	_, _ = h.HandleMessage(ctx, Message{Text: addBillCommand, UserID: 123})
	_, _ = h.HandleMessage(ctx, Message{UserID: 123, Photos: []Photo{{FileID: "f", Width: 1, Height: 1}}})

	replies, err := h.HandleMessage(ctx, Message{Text: addBillCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(sendPhotoMessage), replies)

	// the previously captured photo was discarded
	replies, err = h.HandleMessage(ctx, Message{Text: "Lunch", UserID: 123})
	assert.NoError(t, err)
	assert.Nil(t, replies)
}

func Test_Bills_And_View(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler(t)
	authorize(t, h, 123)

	replies, err := h.HandleMessage(ctx, Message{Text: billsCommand, UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(vaultEmptyMessage), replies)

	// view on an empty vault: not found, no photo sent
	replies, err = h.HandleMessage(ctx, Message{Text: "/view 1", UserID: 123})
	assert.NoError(t, err)
	assert.Equal(t, textReply(notFoundMessage), replies)

	_, _ = h.HandleMessage(ctx, Message{Text: addBillCommand, UserID: 123})
	_, _ = h.HandleMessage(ctx, Message{UserID: 123, Photos: []Photo{{FileID: "f1", Width: 1, Height: 1}}})
	_, _ = h.HandleMessage(ctx, Message{Text: "Lunch", UserID: 123})

	replies, err = h.HandleMessage(ctx, Message{Text: billsCommand, UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "1. Lunch")

	replies, err = h.HandleMessage(ctx, Message{Text: "/view 1", UserID: 123})
	assert.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "f1", replies[0].PhotoID)
	assert.Contains(t, replies[0].Text, "Lunch")

	for _, text := range []string{"/view 2", "/view 0", "/view abc", "/view"} {
		replies, err = h.HandleMessage(ctx, Message{Text: text, UserID: 123})
		assert.NoError(t, err)
		assert.Equal(t, textReply(notFoundMessage), replies, text)
	}
}

func Test_ParseCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		arg  string
	}{
		{"/start", "/start", ""},
		{"/setlimit 100", "/setlimit", "100"},
		{"250 Coffee", "", "250 Coffee"},
		{"  250 Coffee  ", "", "250 Coffee"},
		{"", "", ""},
	}
	for _, c := range cases {
		cmd, arg := parseCommand(c.text)
		assert.Equal(t, c.cmd, cmd, c.text)
		assert.Equal(t, c.arg, arg, c.text)
	}
}
