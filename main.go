package main

import (
	"context"
	"errors"
	"evroaming/central"
	"evroaming/client"
	"evroaming/events"
	"evroaming/gateway"
	"evroaming/internal"
	"evroaming/internal/config"
	"evroaming/internal/eventlog"
	"evroaming/metrics"
	"evroaming/metrics/counters"
	"evroaming/monitor"
	"evroaming/peers"
	"evroaming/pusher"
	"evroaming/server"
	"evroaming/telegram"
	"evroaming/telemetry"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Println("evroaming stopped:", err)
		os.Exit(1)
	}
}

// app holds what run has to tear down, in reverse order of creation.
type app struct {
	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(configPath string) error {
	conf, err := config.GetConfig(configPath)
	if err != nil {
		return err
	}
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return fmt.Errorf("time zone %q: %w", conf.TimeZone, err)
	}

	a := &app{}
	defer a.close()

	logger := internal.NewLogger(location)
	logger.SetDebugMode(conf.IsDebug)
	a.onClose(logger.Stop)

	mongo, err := internal.NewMongoClient(conf)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	var database internal.Database
	if mongo != nil {
		database = mongo
		logger.SetDatabase(database)
	}

	srv := server.NewServer(server.OwnsTransport{Listen: conf.Listen}, logger)
	api := server.NewServerApi(logger)
	if database != nil {
		api.SetDatabase(database)
	}
	collector := counters.NewCollector()

	var emitter *telemetry.Emitter
	var status func() string
	switch conf.Role {
	case config.RoleHub:
		hub := central.NewService(logger, conf.RequestTimeout)
		a.onClose(func() {
			if err := hub.Close(); err != nil {
				logger.Error("closing partner clients", err)
			}
		})
		summary, err := peers.Load(conf, hub, peers.HTTPFactory(conf.RequestTimeout, logger), logger)
		if err != nil {
			return err
		}
		logger.FeatureEvent("peers", conf.ServerName, fmt.Sprintf("loaded %d operators, %d providers, skipped %d",
			summary.Operators, summary.Providers, len(summary.Skipped)))
		hub.Attach(srv)
		emitter = hub.Telemetry()
		collector.Add(conf.Role, hub.Counters())
		api.AddCounters(conf.Role, hub.Counters())
		api.AddPeers(config.RoleCPO, func() []string { return keys(hub.CPOs.Keys()) })
		api.AddPeers(config.RoleEMP, func() []string { return keys(hub.EMPs.Keys()) })
		status = func() string {
			return fmt.Sprintf("Operators: %d\nProviders: %d", hub.CPOs.Len(), hub.EMPs.Len())
		}
	case config.RoleCPO, config.RoleEMP:
		upstream := newClient(conf.Upstream, conf.RequestTimeout, logger)
		a.onClose(func() { _ = upstream.Close() })
		collector.Add(gateway.PartnerUpstream, upstream.Counters())
		api.AddCounters(gateway.PartnerUpstream, upstream.Counters())

		var backend gateway.Partner
		if conf.Backend.Url != "" {
			c := newClient(conf.Backend, conf.RequestTimeout, logger)
			a.onClose(func() { _ = c.Close() })
			collector.Add(gateway.PartnerBackend, c.Counters())
			api.AddCounters(gateway.PartnerBackend, c.Counters())
			backend = c
		}
		gw, err := gateway.New(conf.Role, upstream, backend, conf.RequestTimeout, logger)
		if err != nil {
			return err
		}
		gw.Attach(srv)
		emitter = gw.Telemetry()
		collector.Add(conf.Role, gw.Counters())
		api.AddCounters(conf.Role, gw.Counters())
		status = func() string {
			return fmt.Sprintf("Role: %s\nUpstream: %s", conf.Role, upstream.URL())
		}
	default:
		return fmt.Errorf("unknown role: %q", conf.Role)
	}
	api.Register(srv.Router())

	if err := attachObservers(a, conf, emitter, srv, database, status, logger); err != nil {
		return err
	}

	go func() {
		if err := metrics.Listen(conf, collector); err != nil {
			logger.Error("metrics server", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.FeatureEvent("server", conf.ServerName, fmt.Sprintf("starting as %s on %s:%s", conf.Role, conf.Listen.BindIP, conf.Listen.Port))
		serveErr <- srv.Start()
	}()

	select {
	case err = <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.FeatureEvent("server", conf.ServerName, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-serveErr
}

func newClient(partner config.Partner, timeout time.Duration, logger internal.LogHandler) *client.Client {
	c := client.New(partner.Url, partner.Token, timeout)
	c.SetLogger(logger)
	return c
}

// attachObservers subscribes every enabled telemetry sink to emitter.
func attachObservers(a *app, conf *config.Config, emitter *telemetry.Emitter, srv *server.Server, database internal.Database, status func() string, logger internal.LogHandler) error {
	if conf.Monitor.Enabled {
		m := monitor.New(logger)
		m.Register(srv.Router())
		a.onClose(m.Close)
		if err := subscribeAll(emitter, "monitor", m.Observe); err != nil {
			return err
		}
	}

	if conf.Telegram.Enabled {
		bot, err := telegram.NewBot(conf.Telegram.ApiKey, conf.Telegram.ChatIDs)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		bot.SetLogger(logger)
		bot.SetStatusSource(status)
		bot.Start()
		a.onClose(bot.Stop)
		if err := emitter.OnAnyResponse("telegram", bot.Observe); err != nil {
			return err
		}
	}

	if conf.Nats.Enabled {
		nc, err := events.Connect(conf.Nats.Url, conf.ServerName, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		publisher := events.NewPublisher(nc, conf.Nats.Subject)
		a.onClose(func() {
			if err := publisher.Close(); err != nil {
				logger.Error("draining nats connection", err)
			}
		})
		if err := subscribeAll(emitter, "nats", publisher.Observe); err != nil {
			return err
		}
	}

	if database != nil {
		eventLog := eventlog.NewEventLog(database, logger)
		a.onClose(eventLog.Stop)
		if err := emitter.OnAnyResponse("eventlog", eventLog.Observe); err != nil {
			return err
		}
	}

	messagePusher, err := pusher.NewPusher(conf)
	if err != nil {
		return fmt.Errorf("pusher: %w", err)
	}
	if messagePusher != nil {
		if err := emitter.OnAnyResponse("pusher", messagePusher.Observe); err != nil {
			return err
		}
	}
	return nil
}

func subscribeAll(emitter *telemetry.Emitter, name string, observer telemetry.Observer) error {
	if err := emitter.OnAnyRequest(name, observer); err != nil {
		return err
	}
	return emitter.OnAnyResponse(name, observer)
}

func keys[K fmt.Stringer](list []K) []string {
	out := make([]string, 0, len(list))
	for _, k := range list {
		out = append(out, k.String())
	}
	return out
}
