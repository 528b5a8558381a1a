// Package app wires the assistant's components together and runs them.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/constants"
	"github.com/EasterCompany/dex-assistant-service/dashboard"
	"github.com/EasterCompany/dex-assistant-service/events"
	"github.com/EasterCompany/dex-assistant-service/gateway"
	"github.com/EasterCompany/dex-assistant-service/health"
	"github.com/EasterCompany/dex-assistant-service/intent"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	"github.com/EasterCompany/dex-assistant-service/llm"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/profile"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/reporting"
	"github.com/EasterCompany/dex-assistant-service/services"
	"github.com/EasterCompany/dex-assistant-service/session"
	"github.com/EasterCompany/dex-assistant-service/startup"
	"github.com/EasterCompany/dex-assistant-service/stt"
	"github.com/EasterCompany/dex-assistant-service/system"
	"github.com/EasterCompany/dex-assistant-service/tools"
	"github.com/EasterCompany/dex-assistant-service/tts"
	"github.com/EasterCompany/dex-assistant-service/utils"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

// App holds every live component of the assistant.
type App struct {
	Config    *config.AllConfig
	Session   *discordgo.Session
	Logger    logger.Logger
	DB        cache.Cache
	Profiles  *profile.Store
	STTClient interfaces.SpeechToText
	TTSClient interfaces.Synthesizer
	Provider  interfaces.ChatProvider
	Augmenter *tools.Augmenter
	Reading   *reading.Manager
	Pool      *worker.Pool
	Gateway   *gateway.Server
	Status    *services.StatusServer
	Health    *services.HealthChecker
}

// NewApp loads configuration and constructs every component. The Discord
// session is optional: with no token configured the assistant serves the
// WebSocket gateway only.
func NewApp() (*App, error) {
	cfg, err := config.LoadAllConfigs()
	if err != nil {
		return nil, fmt.Errorf("fatal error loading config: %w", err)
	}

	var s *discordgo.Session
	var appLogger logger.Logger
	if cfg.Discord.Token != "" {
		s, err = session.NewSession(cfg.Discord.Token)
		if err != nil {
			return nil, fmt.Errorf("error creating Discord session: %w", err)
		}
		appLogger = logger.NewLogger(s, cfg.Discord.LogChannelID)
	} else {
		appLogger = logger.NewConsole()
	}

	db, err := cache.New(cfg.Redis)
	if err != nil {
		appLogger.Error("Failed to initialize cache", err)
	}

	var profiles *profile.Store
	var dbIface cache.Cache
	if db != nil {
		dbIface = db
		profiles = profile.NewStore(db.Client())
	}

	sttClient, err := stt.NewClient()
	if err != nil {
		appLogger.Error("Failed to initialize STT client", err)
	}
	var sttIface interfaces.SpeechToText
	if sttClient != nil {
		sttIface = sttClient
	}

	ttsClient := tts.NewClient(cfg.Assistant.TTSURL, cfg.Assistant.TTSVoice)

	provider, err := llm.New(cfg.Assistant.Provider, cfg.Assistant.Persona)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}

	augmenter, err := tools.NewAugmenter(toolFetchers(&cfg.Assistant.Tools),
		cfg.Assistant.Tools.MaxContextChars, cfg.Assistant.Tools.CacheSize, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize augmenter: %w", err)
	}

	readingMgr := reading.NewManager(cfg.Assistant.MaxReadingChars)
	pool := worker.New(cfg.Assistant.Workers, cfg.Assistant.QueueSize)

	gw := gateway.NewServer(gateway.Deps{
		Config:    cfg.Assistant,
		Logger:    appLogger,
		Reading:   readingMgr,
		Augmenter: augmenter,
		Provider:  provider,
		STT:       sttIface,
		TTS:       ttsClient,
		Pool:      pool,
		DB:        dbIface,
	})

	healthChecker := services.NewHealthChecker(30 * time.Second)
	statusServer := services.NewStatusServer(cfg.Assistant.StatusPort, utils.GetVersion().Number, healthChecker)
	statusServer.SetGauges(
		readingMgr.Count,
		gw.ClientCount,
		func() int { return len(pool.JobQueue) },
	)

	return &App{
		Config:    cfg,
		Session:   s,
		Logger:    appLogger,
		DB:        dbIface,
		Profiles:  profiles,
		STTClient: sttIface,
		TTSClient: ttsClient,
		Provider:  provider,
		Augmenter: augmenter,
		Reading:   readingMgr,
		Pool:      pool,
		Gateway:   gw,
		Status:    statusServer,
		Health:    healthChecker,
	}, nil
}

// toolFetchers builds the fetcher table from configuration. Tools with no
// URL configured stay absent; the augmenter fails open for them.
func toolFetchers(cfg *config.ToolsConfig) map[intent.Tool]tools.Fetcher {
	fetchers := make(map[intent.Tool]tools.Fetcher)
	if cfg.SearchURL != "" {
		fetchers[intent.ToolSearch] = tools.NewSearchFetcher(cfg.SearchURL)
	}
	if cfg.DocsURL != "" {
		fetchers[intent.ToolDocs] = tools.NewDocsFetcher(cfg.DocsURL)
	}
	fetchers[intent.ToolBrowse] = tools.NewBrowseFetcher()
	return fetchers
}

// Run starts every component and blocks until a shutdown signal arrives.
func (a *App) Run() {
	a.Pool.Start()
	a.registerHealthChecks()
	a.Health.Start()
	if err := a.Status.Start(); err != nil {
		a.Logger.Error("starting status server", err)
	}

	go func() {
		if err := a.Gateway.Start(); err != nil {
			a.Logger.Fatal("starting gateway", err)
		}
	}()

	var dash *dashboard.StatusDashboard
	if a.Session != nil {
		dash = a.runDiscord()
	} else {
		restored := startup.RestoreReadingSessions(a.DB, a.Reading, a.Logger)
		a.Logger.Post(fmt.Sprintf("Gateway-only mode: listening on %s, %d reading sessions restored.",
			a.Config.Assistant.GatewayAddr, restored))
	}

	fmt.Println("Assistant is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	a.shutdown(dash)
}

// runDiscord connects the bot side: event handlers, boot housekeeping, the
// final boot report and the status dashboard.
func (a *App) runDiscord() *dashboard.StatusDashboard {
	handler := events.NewHandler(a.Session, a.DB, a.Provider, a.Augmenter, a.Reading,
		a.Pool, a.TTSClient, a.Profiles, a.Logger, a.Config.Discord, a.Config.Assistant)
	a.Session.AddHandler(handler.Handle)
	a.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		utils.IncrementReconnects()
	})

	if err := a.Session.Open(); err != nil {
		a.Logger.Fatal("Error opening connection to Discord", err)
	}

	bootMessage := reporting.NewBootMessage(a.Logger)
	bootMessage.PostInitialMessage()
	bootMessage.Update(constants.BootMessageInit)

	cleanupReport := startup.PerformCleanup(a.Session, a.DB, a.Config.Discord, bootMessage.MessageID, a.Logger)
	bootMessage.Update(constants.BootMessageCleanup)

	restored := startup.RestoreReadingSessions(a.DB, a.Reading, a.Logger)
	bootMessage.Update(constants.BootMessageSessionsRestored)

	reporting.PostFinalStatus(a.Session, a.DB, a.Config, a.Provider, a.STTClient,
		bootMessage.MessageID, cleanupReport, restored, a.Logger,
		llm.SystemPrompt(a.Config.Assistant.Persona))

	if a.Config.Discord.LogChannelID == "" || a.Config.Discord.QuietMode {
		return nil
	}
	dash := dashboard.NewStatusDashboard(a.Session, a.Config.Discord.LogChannelID,
		utils.GetVersion().Number, a.gatherSnapshot)
	if err := dash.Init(); err != nil {
		a.Logger.Error("initializing status dashboard", err)
		return nil
	}
	return dash
}

func (a *App) registerHealthChecks() {
	if a.DB != nil {
		a.Health.RegisterProbe("redis", a.DB.Ping)
	}
	if a.Session != nil {
		a.Health.RegisterProbe("discord", func() error {
			if !a.Session.DataReady {
				return fmt.Errorf("gateway not ready")
			}
			return nil
		})
	}
	if a.Provider.Name() == "ollama" {
		url := a.Config.Assistant.Provider.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		a.Health.RegisterService("ollama", url)
	}
	if a.Config.Assistant.TTSURL != "" {
		a.Health.RegisterService("tts", a.Config.Assistant.TTSURL)
	}
	if a.Config.Assistant.Tools.SearchURL != "" {
		a.Health.RegisterService("search", a.Config.Assistant.Tools.SearchURL)
	}
	if a.Config.Assistant.Tools.DocsURL != "" {
		a.Health.RegisterService("docs", a.Config.Assistant.Tools.DocsURL)
	}
}

// gatherSnapshot collects the live stats rendered on the dashboard.
func (a *App) gatherSnapshot() dashboard.Snapshot {
	cpuUsage, _ := system.GetCPUUsage()
	memUsage, _ := system.GetMemoryUsage()

	var gpuLine string
	if gpuInfo, err := health.GetGPUStatus(); err == nil && gpuInfo != nil {
		gpuLine = fmt.Sprintf("**GPU:** %.1f%%", gpuInfo.Utilization)
	}

	deps := []string{"Discord", "Redis", "Provider", "TTS"}
	statuses := map[string]string{
		"Discord":  health.GetDiscordStatus(a.Session),
		"Redis":    health.GetCacheStatus(a.DB, a.Config.Redis),
		"Provider": health.GetProviderStatus(a.Provider, &a.Config.Assistant.Provider),
		"TTS":      health.GetEndpointStatus(a.Config.Assistant.TTSURL),
	}
	// Monitored endpoints and probes come from the health checker's last poll.
	checked := a.Health.GetAllServices()
	names := make([]string, 0, len(checked))
	for name := range checked {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch name {
		case "redis", "discord", "tts", "ollama":
			// Already shown on the point-in-time lines above.
			continue
		}
		deps = append(deps, name)
		statuses[name] = fmt.Sprintf("%s `%s`", services.GetStatusEmoji(checked[name].Status), checked[name].Status)
	}

	return dashboard.Snapshot{
		Provider:        a.Provider.Name(),
		ReadingSessions: a.Reading.Count(),
		GatewayClients:  a.Gateway.ClientCount(),
		QueueDepth:      len(a.Pool.JobQueue),
		CPUPercent:      cpuUsage,
		MemPercent:      memUsage,
		GPULine:         gpuLine,
		Dependencies:    deps,
		Statuses:        statuses,
	}
}

func (a *App) shutdown(dash *dashboard.StatusDashboard) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if dash != nil {
		_ = dash.Finalize()
	}
	if err := a.Gateway.Shutdown(ctx); err != nil {
		a.Logger.Error("shutting down gateway", err)
	}
	a.Health.Stop()
	a.Pool.Stop()
	if a.Session != nil {
		_ = a.Session.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	fmt.Println("Assistant shutting down.")
}
