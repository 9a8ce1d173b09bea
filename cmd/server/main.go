package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"agora/bot"
	"agora/impl/auth"
	"agora/impl/core"
	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/http-server/api"
	"agora/internal/mailer"
	"agora/internal/stripeclient"
	"agora/internal/waitlist"
	"agora/lib/logger"
	"agora/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting agora", slog.String("config", *configPath), slog.String("env", conf.Env))

	mongo := database.NewMongoClient(conf)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongo.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Error("ensure indexes", sl.Err(err))
		os.Exit(1)
	}
	cancel()

	redis, err := cache.New(conf)
	if err != nil {
		log.Error("redis connect", sl.Err(err))
		os.Exit(1)
	}

	ml, err := mailer.New(conf.Mail, log)
	if err != nil {
		log.Error("mailer init", sl.Err(err))
		os.Exit(1)
	}

	wl := waitlist.New(mongo, redis, ml, waitlist.Config{
		PositionTTL: conf.Waitlist.PositionTTL,
		CountTTL:    conf.Waitlist.CountTTL,
	}, log)

	sc := stripeclient.New(conf, log)
	sc.SetDatabase(mongo)

	handler := core.New(wl, sc, log)
	handler.SetAuthService(auth.New(mongo))

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.APIKey, mongo, log)
		if err != nil {
			log.Error("telegram bot init", sl.Err(err))
			os.Exit(1)
		}
		tgBot.SetStats(wl)
		if err = tgBot.Start(); err != nil {
			log.Error("telegram bot start", sl.Err(err))
			os.Exit(1)
		}
		defer tgBot.Stop()
		handler.SetNotifier(tgBot)
		log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, slog.LevelWarn))
	}

	if err = api.New(conf, log, handler); err != nil {
		log.Error("api server", sl.Err(err))
		os.Exit(1)
	}
}
