package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/painlens-backend/internal/clients/redis"
	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
	"github.com/yungbote/painlens-backend/internal/platform/openai"
)

type Clients struct {
	// Redis is nil when REDIS_ADDR is unset.
	Redis *goredis.Client
	// OpenAI is nil when OPENAI_API_KEY is unset; insights then come from templates.
	OpenAI openai.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redis.NewClientFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	var ai openai.Client
	if envutil.String("OPENAI_API_KEY", "") != "" {
		ai, err = openai.NewClient(log)
		if err != nil {
			if rdb != nil {
				_ = rdb.Close()
			}
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
	} else {
		log.Warn("OPENAI_API_KEY not set; pain matrix insights will use templates")
	}

	return Clients{Redis: rdb, OpenAI: ai}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
