package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/handstream/internal/app"
	"github.com/ayusman/handstream/internal/capture"
	"github.com/ayusman/handstream/internal/config"
	"github.com/ayusman/handstream/internal/discovery"
	"github.com/ayusman/handstream/internal/mirror"
	"github.com/ayusman/handstream/internal/relay"
	"github.com/ayusman/handstream/internal/server"
	"github.com/ayusman/handstream/internal/tracker"
	"github.com/ayusman/handstream/internal/tray"
)

func main() {
	fmt.Println("Handstream - Hand Pose Streaming Server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.ListenAddr, err)
	}

	appCfg := app.Config{
		Source:     newSource(cfg),
		Listener:   listener,
		Advertiser: discovery.NewZeroconfAdvertiser(cfg.ServiceName, cfg.ServiceType, cfg.ServiceDomain),
		Relay: relay.Config{
			DestPort:     cfg.UDPDestPort,
			BasePort:     cfg.UDPBasePort,
			PollInterval: cfg.PollInterval,
			StartupDelay: cfg.StartupDelay,
			Debug:        cfg.Debug,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Tracker:         tracker.Options{ClampFlexion: cfg.ClampFlexion},
		MirrorTopic:     cfg.MQTTTopic,
	}

	if cfg.MQTTBroker != "" {
		client, err := mirror.Connect(mirror.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Printf("Mirror disabled: %v", err)
		} else {
			defer client.Close()
			appCfg.Mirror = client
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.New(appCfg)
	if err := a.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(server.Config{
			Slot:         a.Slot(),
			Sessions:     a.Sessions(),
			Status:       a,
			PollInterval: cfg.PollInterval,
		})
		go func() {
			log.Printf("Monitor listening on %s", cfg.HTTPAddr)
			if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
				log.Printf("Monitor failed: %v", err)
			}
		}()
	}

	if cfg.Tray {
		runTray(ctx, a)
	} else {
		waitForQuit()
	}

	log.Println("Shutting down...")
	a.Stop()
	cancel()
	log.Println("Shutdown complete")
}

// newSource builds the configured frame source. The config is validated.
func newSource(cfg *config.Config) capture.Source {
	switch cfg.Source {
	case config.SourceReplay:
		log.Printf("Replaying frames from %s", cfg.ReplayFile)
		return capture.NewReplaySource(cfg.ReplayFile, cfg.ReplayInterval, cfg.ReplayLoop)
	case config.SourceBridge:
		args := cfg.BridgeArgs()
		log.Printf("Reading frames from %s", args[0])
		return capture.NewBridgeSource(args[0], args[1:]...)
	default:
		log.Printf("Using simulated hand at %d fps", cfg.SimFPS)
		return capture.NewSimulatedSource(cfg.SimFPS)
	}
}

// waitForQuit blocks until Enter is pressed or an interrupt arrives.
func waitForQuit() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	fmt.Println("Press Enter to quit...")
	select {
	case <-sigChan:
	case <-enter:
	}
}

// runTray blocks on the tray menu, refreshing the client count every second.
func runTray(ctx context.Context, a *app.App) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				t.Quit()
				return
			case <-ticker.C:
				t.SetClients(a.Sessions().Count())
			}
		}
	}()

	t.Run()
}
