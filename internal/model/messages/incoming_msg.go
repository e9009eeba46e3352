package messages

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"max.ks1230/expenses-bot/internal/model/interaction"
)

type messageSender interface {
	SendMessage(text string, userID int64) error
	SendPhoto(fileID, caption string, userID int64) error
}

type Service struct {
	tgClient messageSender
	handler  *HandlerService
}

func NewService(tgClient messageSender, storage userStorage, tracker *interaction.Tracker, cache ReplyCache, config config) *Service {
	return &Service{
		tgClient: tgClient,
		handler:  newHandler(storage, tracker, cache, config),
	}
}

// Photo is one resolution variant of an incoming picture.
type Photo struct {
	FileID string
	Width  int
	Height int
}

// Message is the transport-agnostic incoming event: a sender plus an
// optional text and/or photo payload.
type Message struct {
	Text   string
	UserID int64
	Photos []Photo
}

func (s *Service) HandleIncomingMessage(ctx context.Context, msg Message) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "handleMessage")
	defer span.Finish()

	start := time.Now()
	err := s.handle(ctx, msg)
	elapsed := time.Since(start)

	observeResponse(elapsed, err != nil)
	if err != nil {
		ext.Error.Set(span, true)
	}
	return err
}

func (s *Service) handle(ctx context.Context, msg Message) error {
	replies, err := s.handler.HandleMessage(ctx, msg)
	if err != nil {
		_ = s.tgClient.SendMessage(somethingWrongMessage, msg.UserID)
		return err
	}
	for _, reply := range replies {
		if reply.PhotoID != "" {
			err = s.tgClient.SendPhoto(reply.PhotoID, reply.Text, msg.UserID)
		} else {
			err = s.tgClient.SendMessage(reply.Text, msg.UserID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
