package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/assistant"
	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/config"
	"github.com/kozaktomas/presence-station/internal/database/postgres"
	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/feedback"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/gallery"
	"github.com/kozaktomas/presence-station/internal/hardware"
	"github.com/kozaktomas/presence-station/internal/presence"
	"github.com/kozaktomas/presence-station/internal/station"
	"github.com/kozaktomas/presence-station/internal/voice"
)

// app holds the station components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	extractor *fingerprint.EmbeddingClient
	store     *gallery.Store
	registry  *presence.Registry
	log       attendance.Log
	board     *hardware.SimBoard
	buzzer    *feedback.Buzzer
	climate   *climate.Controller
	events    *events.Broadcaster
	station   *station.Service
	commands  *voice.Router
	assistant assistant.Answerer
	closers   []func() error
}

type appOptions struct {
	// mirror flips frames horizontally before recognition (live camera preview).
	mirror bool
	// loadGallery embeds the known faces on startup.
	loadGallery bool
	progress    gallery.ProgressFunc
}

// newApp wires the station from the environment. The presence registry is
// rebuilt from the attendance log.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg := config.Load()
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		extractor: fingerprint.NewEmbeddingClient(cfg.Embedding.URL),
		registry:  presence.NewRegistry(),
		events:    events.NewBroadcaster(),
	}

	a.store, err = gallery.NewStore(cfg.Station.KnownFacesDir, cfg.Station.WorkerDataDir, a.extractor, logger.Named("gallery"))
	if err != nil {
		return nil, err
	}
	if opts.loadGallery {
		if _, err := a.store.Reload(ctx, opts.progress); err != nil {
			return nil, fmt.Errorf("load gallery: %w", err)
		}
	}

	if err := a.openLog(ctx); err != nil {
		a.Close()
		return nil, err
	}
	report, err := attendance.Restore(ctx, a.log, a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}
	if report.Anomalies > 0 {
		logger.Warn("attendance log breaks IN/OUT alternation", zap.Int("anomalies", report.Anomalies))
	}

	a.board = hardware.NewSimBoard(hardware.Reading{
		Temperature: cfg.Climate.SimTemperature,
		Humidity:    cfg.Climate.SimHumidity,
	}, logger.Named("board"))
	a.buzzer = feedback.NewBuzzer(a.board, logger.Named("feedback"))

	a.climate = climate.NewController(climate.Config{
		Interval:       cfg.Climate.Interval,
		FanThreshold:   cfg.Climate.FanThreshold,
		SensorAttempts: cfg.Climate.SensorAttempts,
		SensorDelay:    cfg.Climate.SensorRetryDelay,
		SensorTimeout:  cfg.Climate.SensorTimeout,
	}, a.board, a.board, a.registry,
		climate.WithNotifier(a.buzzer),
		climate.WithPublisher(a.events),
		climate.WithLogger(logger.Named("climate")),
	)

	processor := attendance.NewProcessor(a.registry, a.log, attendance.WithLogger(logger.Named("attendance")))
	stationCfg := station.DefaultConfig()
	stationCfg.Tolerance = cfg.Station.MatchTolerance
	stationCfg.DebounceInterval = cfg.Station.DebounceInterval
	stationCfg.Frame.Mirror = opts.mirror
	a.station = station.NewService(stationCfg, a.extractor, a.store, processor,
		station.WithNotifier(a.buzzer),
		station.WithPublisher(a.events),
		station.WithLogger(logger.Named("station")),
	)

	a.commands, err = a.newCommandRouter(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openLog selects PostgreSQL when DATABASE_URL is set and the log file otherwise.
func (a *app) openLog(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		log, err := attendance.NewFileLog(a.cfg.Station.AttendanceLogPath, time.Local)
		if err != nil {
			return err
		}
		a.log = log
		return nil
	}

	pool, err := postgres.Open(ctx, &a.cfg.Database, a.logger.Named("postgres"))
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.log = postgres.NewAttendanceRepository(pool, time.Local)
	return nil
}

func (a *app) newCommandRouter(ctx context.Context) (*voice.Router, error) {
	vocab, err := voice.DefaultVocabulary()
	if a.cfg.Station.VocabularyPath != "" {
		vocab, err = voice.LoadVocabulary(a.cfg.Station.VocabularyPath)
	}
	if err != nil {
		return nil, err
	}

	answerer, err := assistant.New(ctx, assistant.Config{
		Provider:     a.cfg.Assistant.Provider,
		OpenAIToken:  a.cfg.Assistant.OpenAIToken,
		GeminiAPIKey: a.cfg.Assistant.GeminiAPIKey,
		OllamaURL:    a.cfg.Assistant.OllamaURL,
		OllamaModel:  a.cfg.Assistant.OllamaModel,
	})
	if err != nil {
		// Device commands still work without an assistant.
		a.logger.Warn("assistant disabled", zap.Error(err))
		answerer = nil
	}
	a.assistant = answerer
	return voice.NewRouter(vocab, a.climate, answerer, a.buzzer, a.logger.Named("voice")), nil
}

// Close releases the database and flushes the logger.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
