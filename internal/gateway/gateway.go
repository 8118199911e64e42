package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/leilabot/leila/internal/bus"
	"github.com/leilabot/leila/internal/channel"
	"github.com/leilabot/leila/internal/config"
	"github.com/leilabot/leila/internal/cron"
	"github.com/leilabot/leila/internal/llm"
	"github.com/leilabot/leila/internal/memory"
	"github.com/leilabot/leila/internal/responder"
	"github.com/leilabot/leila/internal/user"
	"github.com/leilabot/leila/internal/weather"
	"github.com/leilabot/leila/internal/wiki"
)

const dailyGreetingJobName = "daily-greeting"

// CompleterFactory builds the generation client (allows injection for testing)
type CompleterFactory func(cfg config.ProviderConfig) (responder.Completer, error)

// Options for creating a Gateway
type Options struct {
	CompleterFactory CompleterFactory
	SignalChan       chan os.Signal // for testing signal handling
}

// DefaultCompleterFactory creates the OpenAI-backed client.
func DefaultCompleterFactory(cfg config.ProviderConfig) (responder.Completer, error) {
	return llm.NewClient(cfg)
}

// Gateway wires config, channels, memory, the responder pipeline and
// the scheduler together and runs the inbound processing loop.
type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	registry   *user.Registry
	store      *memory.Store
	resp       *responder.Responder
	channels   *channel.ChannelManager
	cron       *cron.Service
	weather    *weather.Client
	wiki       *wiki.Client
	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	registry, err := user.NewRegistry(config.DefaultMaxUsers, cfg.Channels.Telegram.SpecialUser)
	if err != nil {
		return nil, fmt.Errorf("create user registry: %w", err)
	}
	g.registry = registry

	store, err := memory.NewStore(cfg.Memory.MaxConversations, memory.Limits{
		MaxTurns:     cfg.Memory.MaxTurns,
		EvictBlock:   cfg.Memory.EvictBlock,
		MaxSummaries: cfg.Memory.MaxSummaries,
		MaxPoints:    cfg.Memory.MaxPoints,
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation store: %w", err)
	}
	g.store = store

	var completer responder.Completer
	if cfg.Provider.APIKey != "" {
		factory := opts.CompleterFactory
		if factory == nil {
			factory = DefaultCompleterFactory
		}
		completer, err = factory(cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("create generation client: %w", err)
		}
	} else {
		log.Printf("[gateway] no provider api key, replies degrade to the fallback line")
	}

	tz, err := time.LoadLocation(cfg.Persona.Timezone)
	if err != nil {
		log.Printf("[gateway] unknown timezone %q, using UTC", cfg.Persona.Timezone)
		tz = nil
	}

	g.resp = responder.New(responder.Options{
		Registry:    g.registry,
		Store:       g.store,
		Gate:        responder.NewGate(cfg.Gate.SkipProbability, nil),
		Completer:   completer,
		PersonaName: cfg.Persona.Name,
		Location:    cfg.Persona.Location,
		Timezone:    tz,
	})

	g.weather = weather.NewClient(cfg.Weather.APIKey)
	g.wiki = wiki.NewClient()

	g.signalChan = opts.SignalChan

	// Cron
	cronStorePath := filepath.Join(config.ConfigDir(), "data", "cron", "jobs.json")
	g.cron = cron.NewService(cronStorePath)
	g.cron.OnJob = func(job cron.CronJob) (string, error) {
		var result string
		var err error
		switch job.Payload.Kind {
		case "greeting":
			result, err = g.resp.DailyGreeting(context.Background())
		default:
			result = job.Payload.Message
		}
		if err != nil {
			return "", err
		}
		if result != "" && job.Payload.Channel != "" && job.Payload.To != "" {
			g.bus.Outbound <- bus.OutboundMessage{
				Channel: job.Payload.Channel,
				ChatID:  job.Payload.To,
				Content: result,
			}
		}
		return result, nil
	}

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Persona, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

// ensureDailyGreetingJob registers the scheduled group good-morning
// message once, keeping any persisted copy.
func (g *Gateway) ensureDailyGreetingJob() error {
	if !g.cfg.Cron.Enabled || g.cfg.Channels.Telegram.GroupChatID == "" {
		return nil
	}
	if _, ok := g.cron.FindJobByName(dailyGreetingJobName); ok {
		return nil
	}
	_, err := g.cron.AddJob(dailyGreetingJobName,
		cron.Schedule{Kind: "cron", Expr: g.cfg.Cron.DailyGreeting},
		cron.Payload{Kind: "greeting", Channel: "telegram", To: g.cfg.Channels.Telegram.GroupChatID},
	)
	return err
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.cron.Start(ctx); err != nil {
		log.Printf("[gateway] cron start warning: %v", err)
	}
	if err := g.ensureDailyGreetingJob(); err != nil {
		log.Printf("[gateway] ensure daily greeting job warning: %v", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] %s is listening", g.cfg.Persona.Name)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			var reply string
			var ok bool
			if strings.HasPrefix(strings.TrimSpace(msg.Content), "/") {
				reply, ok = g.handleCommand(ctx, msg)
			} else {
				reply, ok = g.resp.HandleMessage(ctx, msg)
			}
			if !ok || reply == "" {
				continue
			}

			g.bus.Outbound <- bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: reply,
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleCommand serves the slash commands. The second return value
// reports whether a reply should be sent.
func (g *Gateway) handleCommand(ctx context.Context, msg bus.InboundMessage) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(msg.Content))
	if len(fields) == 0 {
		return "", false
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	args := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Content), fields[0]))

	switch cmd {
	case "/start":
		return fmt.Sprintf("Hi! I'm %s. Write to me and I'll keep up my end of the conversation. Try /help for the commands.", g.cfg.Persona.Name), true

	case "/help":
		return strings.Join([]string{
			"/start - introduction",
			"/help - this list",
			"/weather [city] - current weather",
			"/wiki <query> - article summary",
			"/say_to_group <text> - relay a message to the group (owner only)",
		}, "\n"), true

	case "/weather":
		city := args
		if city == "" {
			city = g.cfg.Weather.DefaultCity
		}
		report, err := g.weather.Current(ctx, city)
		if err != nil {
			log.Printf("[gateway] weather lookup failed: %v", err)
			return "Couldn't check the weather right now, sorry.", true
		}
		return report.String(), true

	case "/wiki":
		if args == "" {
			return "Tell me what to look up: /wiki <query>", true
		}
		res, err := g.wiki.Summary(ctx, args)
		if err != nil {
			log.Printf("[gateway] wiki lookup failed: %v", err)
			return "Couldn't find anything on that, sorry.", true
		}
		return res.Title + "\n\n" + res.Summary + "\n" + res.URL, true

	case "/say_to_group":
		if msg.SenderID != g.cfg.Channels.Telegram.OwnerID || g.cfg.Channels.Telegram.OwnerID == "" {
			return "That one is not for you.", true
		}
		if args == "" {
			return "Give me the text: /say_to_group <text>", true
		}
		if g.cfg.Channels.Telegram.GroupChatID == "" {
			return "No group chat configured.", true
		}
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  g.cfg.Channels.Telegram.GroupChatID,
			Content: args,
		}
		return "Sent.", true
	}

	// Unknown slash commands go through the normal pipeline; people do
	// type things like "/shrug".
	return g.resp.HandleMessage(ctx, msg)
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
