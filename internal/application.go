package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/ai"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/match"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

const shutdownGraceSec = 5

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	profileRepo := repository.NewProfileRepository(redisStorage.Connection)
	accountRepo := repository.NewAccountRepository(sqliteStorage.Connection)
	profileService := service.NewProfileService(logger, profileRepo, accountRepo)

	handler := match.NewHandler(logger, match.Config{
		Timing: tictactoe.Timing{
			TickRate:          conf.Match.TickRate,
			TurnTimeFastSec:   conf.Match.TurnTimeFastSec,
			TurnTimeNormalSec: conf.Match.TurnTimeNormalSec,
		},
		MaxEmptySec:          conf.Match.MaxEmptySec,
		DelayBetweenGamesSec: conf.Match.DelayBetweenGamesSec,
	}, moveProvider(logger, conf.AI), profileService)

	manager := usecase.NewMatchManager(logger, handler)
	matchmaker := usecase.NewMatchmaker(logger, manager)

	wsServer := websocket.New(logger, manager, matchmaker)
	manager.SetNotifier(wsServer)

	httpServer := rest.New(logger, profileService, matchmaker)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		if httpErr := httpServer.Start(conf.HTTPPort); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		if wsErr := wsServer.Start(conf.SocketPort); wsErr != nil {
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		err = fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		err = fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("application context canceled, shutting down")
	}

	shutdown(logger, manager, httpServer, wsServer)

	return err
}

func moveProvider(logger *slog.Logger, conf config.AI) match.MoveProvider {
	if conf.Address == "" {
		logger.Warn("ai address is empty, falling back to random moves")
		return ai.NewRandomProvider()
	}

	return ai.New(logger, conf.Address, conf.Timeout)
}

func shutdown(logger *slog.Logger, manager *usecase.MatchManager, httpServer *rest.Server, wsServer *websocket.Server) {
	log := logger.With("method", "shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), (shutdownGraceSec+1)*time.Second)
	defer cancel()

	if err := manager.Shutdown(ctx, shutdownGraceSec); err != nil {
		log.Error("failed to stop matches", "error", err)
	}

	if err := wsServer.Shutdown(ctx); err != nil {
		log.Error("failed to stop websocket server", "error", err)
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("failed to stop http server", "error", err)
	}
}
