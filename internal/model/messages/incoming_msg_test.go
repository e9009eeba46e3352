package messages

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"max.ks1230/expenses-bot/internal/model/interaction"
	"max.ks1230/expenses-bot/internal/model/storage"
)

type sentMessage struct {
	text    string
	photoID string
	userID  int64
}

type senderMock struct {
	sent []sentMessage
	err  error
}

func (s *senderMock) SendMessage(text string, userID int64) error {
	s.sent = append(s.sent, sentMessage{text: text, userID: userID})
	return s.err
}

func (s *senderMock) SendPhoto(fileID, caption string, userID int64) error {
	s.sent = append(s.sent, sentMessage{text: caption, photoID: fileID, userID: userID})
	return s.err
}

func Test_OnSecret_ShouldSendAccessGranted(t *testing.T) {
	sender := &senderMock{}
	model := NewService(sender, storage.NewInMemStorage(), interaction.NewTracker(), nil, testConfig{secret: testSecret})

	err := model.HandleIncomingMessage(context.Background(), Message{
		Text:   testSecret,
		UserID: 123,
	})

	assert.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, accessGrantedMessage, sender.sent[0].text)
	assert.Equal(t, int64(123), sender.sent[0].userID)
}

func Test_OnViewCommand_ShouldSendPhotoReply(t *testing.T) {
	ctx := context.Background()
	sender := &senderMock{}
	st := storage.NewInMemStorage()
	model := NewService(sender, st, interaction.NewTracker(), nil, testConfig{secret: testSecret})

	_ = model.HandleIncomingMessage(ctx, Message{Text: testSecret, UserID: 123})
	_ = model.HandleIncomingMessage(ctx, Message{Text: addBillCommand, UserID: 123})
	_ = model.HandleIncomingMessage(ctx, Message{UserID: 123, Photos: []Photo{{FileID: "f1", Width: 1, Height: 1}}})
	_ = model.HandleIncomingMessage(ctx, Message{Text: "Lunch", UserID: 123})

	sender.sent = nil
	err := model.HandleIncomingMessage(ctx, Message{Text: "/view 1", UserID: 123})

	assert.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "f1", sender.sent[0].photoID)
	assert.Contains(t, sender.sent[0].text, "Lunch")
}

func Test_OnInertInput_ShouldStaySilent(t *testing.T) {
	ctx := context.Background()
	sender := &senderMock{}
	model := NewService(sender, storage.NewInMemStorage(), interaction.NewTracker(), nil, testConfig{secret: testSecret})

	_ = model.HandleIncomingMessage(ctx, Message{Text: testSecret, UserID: 123})
	sender.sent = nil

	err := model.HandleIncomingMessage(ctx, Message{Text: "bad input", UserID: 123})

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

type cacheMock struct {
	store       map[string]string
	invalidated []string
}

func newCacheMock() *cacheMock {
	return &cacheMock{store: make(map[string]string)}
}

func (c *cacheMock) key(userID int64, view string) string {
	return view
}

func (c *cacheMock) GetReply(userID int64, view string) (string, error) {
	text, ok := c.store[c.key(userID, view)]
	if !ok {
		return "", errors.New("cache miss")
	}
	return text, nil
}

func (c *cacheMock) CacheReply(userID int64, view, text string) error {
	c.store[c.key(userID, view)] = text
	return nil
}

func (c *cacheMock) InvalidateReplies(userID int64, views []string) error {
	for _, v := range views {
		delete(c.store, c.key(userID, v))
		c.invalidated = append(c.invalidated, v)
	}
	return nil
}

func Test_Stats_ShouldUseReplyCache(t *testing.T) {
	ctx := context.Background()
	cache := newCacheMock()
	st := storage.NewInMemStorage()
	h := newHandler(st, interaction.NewTracker(), cache, testConfig{secret: testSecret})
	authorize(t, h, 123)

	_, _ = h.HandleMessage(ctx, Message{Text: "250 Coffee", UserID: 123})

	replies, err := h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Len(t, cache.store, 1, "stats reply should be cached")

	// a cached reply is served even if the backing store changed
	for k := range cache.store {
		cache.store[k] = "cached-briefing"
	}
	replies, err = h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	require.NoError(t, err)
	assert.Equal(t, "cached-briefing", replies[0].Text)

	// any mutation invalidates the cached views
	_, _ = h.HandleMessage(ctx, Message{Text: "10 Tea", UserID: 123})
	replies, err = h.HandleMessage(ctx, Message{Text: statsCommand, UserID: 123})
	require.NoError(t, err)
	assert.Contains(t, replies[0].Text, "Tea")
	assert.NotEmpty(t, cache.invalidated)
}
