package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/leilabot/leila/internal/bus"
	"github.com/leilabot/leila/internal/config"
	"github.com/leilabot/leila/internal/responder"
	"github.com/leilabot/leila/internal/weather"
)

type cannedCompleter struct {
	reply string
}

func (c *cannedCompleter) Complete(ctx context.Context, req responder.CompletionRequest) (string, error) {
	return c.reply, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Channels.Telegram.OwnerID = "1"
	cfg.Channels.Telegram.GroupChatID = "-500"
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config, reply string) *Gateway {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	opts := Options{SignalChan: make(chan os.Signal, 1)}
	if reply != "" {
		cfg.Provider.APIKey = "sk-test"
		opts.CompleterFactory = func(config.ProviderConfig) (responder.Completer, error) {
			return &cannedCompleter{reply: reply}, nil
		}
	}

	g, err := NewWithOptions(cfg, opts)
	if err != nil {
		t.Fatalf("NewWithOptions error: %v", err)
	}
	return g
}

func privateInbound(senderID, text string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:    "telegram",
		SenderID:   senderID,
		SenderName: "Oleg",
		ChatID:     senderID,
		ChatKind:   bus.ChatPrivate,
		Content:    text,
		Timestamp:  time.Now(),
	}
}

func TestNewGatewayWithoutProvider(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")
	if g.resp == nil || g.store == nil || g.registry == nil {
		t.Error("gateway not fully wired")
	}
}

func TestProcessLoopRoutesReply(t *testing.T) {
	g := newTestGateway(t, testConfig(), "Hello to you too.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.processLoop(ctx)

	g.bus.Inbound <- privateInbound("8", "hello")

	select {
	case out := <-g.bus.Outbound:
		if out.Channel != "telegram" || out.ChatID != "8" {
			t.Errorf("outbound = %+v", out)
		}
		if out.Content != "Hello to you too." {
			t.Errorf("Content = %q", out.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("no outbound reply")
	}
}

func TestHandleCommandStartAndHelp(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")

	reply, ok := g.handleCommand(context.Background(), privateInbound("8", "/start"))
	if !ok || !strings.Contains(reply, g.cfg.Persona.Name) {
		t.Errorf("/start reply = %q", reply)
	}

	reply, ok = g.handleCommand(context.Background(), privateInbound("8", "/help"))
	if !ok || !strings.Contains(reply, "/weather") {
		t.Errorf("/help reply = %q", reply)
	}
}

func TestHandleCommandWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Moscow","weather":[{"description":"clear sky"}],"main":{"temp":21,"feels_like":20}}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Weather.APIKey = "wkey"
	g := newTestGateway(t, cfg, "")
	g.weather = weather.NewClient("wkey")
	g.weather.SetBaseURL(srv.URL)

	reply, ok := g.handleCommand(context.Background(), privateInbound("8", "/weather Moscow"))
	if !ok || !strings.Contains(reply, "clear sky") {
		t.Errorf("/weather reply = %q", reply)
	}
}

func TestHandleCommandWeatherFailureIsFriendly(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")

	reply, ok := g.handleCommand(context.Background(), privateInbound("8", "/weather"))
	if !ok || strings.Contains(reply, "error") || reply == "" {
		t.Errorf("/weather failure reply = %q, want a friendly line", reply)
	}
}

func TestHandleCommandSayToGroup(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")

	reply, ok := g.handleCommand(context.Background(), privateInbound("1", "/say_to_group see you all at 8"))
	if !ok || reply != "Sent." {
		t.Errorf("owner /say_to_group reply = %q", reply)
	}
	select {
	case out := <-g.bus.Outbound:
		if out.ChatID != "-500" || out.Content != "see you all at 8" {
			t.Errorf("relayed = %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("relay never reached the bus")
	}

	reply, _ = g.handleCommand(context.Background(), privateInbound("8", "/say_to_group nope"))
	if reply == "Sent." {
		t.Error("non-owner was allowed to relay")
	}
}

func TestHandleCommandStripsBotSuffix(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")

	reply, ok := g.handleCommand(context.Background(), privateInbound("8", "/help@leila_bot"))
	if !ok || !strings.Contains(reply, "/weather") {
		t.Errorf("suffixed command reply = %q", reply)
	}
}

func TestEnsureDailyGreetingJobOnce(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")
	g.cfg.Cron.Enabled = true

	if err := g.ensureDailyGreetingJob(); err != nil {
		t.Fatalf("ensureDailyGreetingJob error: %v", err)
	}
	if err := g.ensureDailyGreetingJob(); err != nil {
		t.Fatalf("second ensure error: %v", err)
	}
	if n := len(g.cron.ListJobs()); n != 1 {
		t.Errorf("jobs = %d, want exactly one greeting job", n)
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	g := newTestGateway(t, testConfig(), "")

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	g.signalChan <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop on signal")
	}
}
