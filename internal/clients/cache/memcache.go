package cache

import (
	"strconv"

	"github.com/pkg/errors"

	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/logger"

	"github.com/bradfitz/gomemcache/memcache"
)

var defaultBase = 10

// MemcacheClient caches rendered read-only replies (stats, bills) keyed
// by user and view.
type MemcacheClient struct {
	client *memcache.Client
}

type config interface {
	Hosts() []string
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

func formatKey(userID int64, view string) string {
	return strconv.FormatInt(userID, defaultBase) + ":" + view
}

func (mc *MemcacheClient) CacheReply(userID int64, view string, text string) error {
	logger.Info("cache reply", zap.Int64("userID", userID), zap.String("view", view))
	return mc.client.Set(&memcache.Item{
		Key:   formatKey(userID, view),
		Value: []byte(text)},
	)
}

func (mc *MemcacheClient) GetReply(userID int64, view string) (string, error) {
	logger.Info("get reply from cache", zap.Int64("userID", userID), zap.String("view", view))
	item, err := mc.client.Get(formatKey(userID, view))
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (mc *MemcacheClient) InvalidateReplies(userID int64, views []string) error {
	logger.Info("invalidate replies", zap.Int64("userID", userID))

	for _, view := range views {
		err := mc.client.Delete(formatKey(userID, view))
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return err
		}
	}
	return nil
}
