package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/chatible/internal/cache"
	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/lang"
	"github.com/oggyb/chatible/internal/repository"
)

// AppContext holds shared dependencies (config, DB, Redis, logger, catalog).
//
// Chats is the single persistence gateway; the bot and the admin service
// must share it so their writes go through the same lock.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Lang       *lang.Messages
	Chats      *repository.ChatRepository
}

// New creates a new AppContext. rdb may be nil to run without the profile cache.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, msgs *lang.Messages) *AppContext {
	if msgs == nil {
		msgs = lang.Default()
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Lang:       msgs,
		Chats:      repository.NewChatRepository(db, rdb),
	}
}
