// Command oatmealecho wires serialio, deviceconfig and oatmealzero
// together into a small multi-port echo service: every non-built-in
// frame received on a port is echoed back with an 'A' flag, while a
// background ticker drives that port's status heartbeat. Several ports
// run concurrently via errgroup, the same shutdown shape as the teacher
// pack's TCP echo example.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	oatmeal "github.com/oatmealproto/oatmeal-go"
	"github.com/oatmealproto/oatmeal-go/deviceconfig"
	"github.com/oatmealproto/oatmeal-go/oatmealzero"
	"github.com/oatmealproto/oatmeal-go/serialio"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a device TOML config (see deviceconfig.Profile)")
		devices    = flag.String("devices", "", "comma-separated serial device paths; empty runs an in-memory demo port instead")
		heartbeat  = flag.Duration("heartbeat", 5*time.Second, "status heartbeat cadence")
	)
	flag.Parse()

	logger := oatmealzero.New("oatmealecho")

	var opts []oatmeal.Option
	opts = append(opts, oatmeal.WithLogger(loggerAdapter{logger}))
	if *configPath != "" {
		profile, err := deviceconfig.Load(*configPath)
		if err != nil {
			slog.Error("load device config", "error", err)
			os.Exit(1)
		}
		opts = append(opts, oatmeal.WithProfile(profile))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down oatmealecho...")
		cancel()
	}()

	var g errgroup.Group

	paths := splitNonEmpty(*devices)
	if len(paths) == 0 {
		slog.Info("no --devices given, running a single in-memory demo port")
		demo := oatmeal.NewPort(oatmeal.NewBufferTransport(), opts...)
		g.Go(func() error { return runPort(ctx, demo, *heartbeat) })
	} else {
		for _, path := range paths {
			path := path
			sp, err := serialio.Open(path, 115200)
			if err != nil {
				slog.Error("open serial port", "path", path, "error", err)
				continue
			}
			p := oatmeal.NewPort(sp, opts...)
			g.Go(func() error { return runPort(ctx, p, *heartbeat) })
		}
	}

	if err := g.Wait(); err != nil {
		slog.Error("oatmealecho exited with an error", "error", err)
		os.Exit(1)
	}
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runPort drives one Port until ctx is cancelled: every cycle it drains
// pending frames (built-ins answered automatically, everything else
// echoed back), then checks whether the heartbeat ticker has fired --
// which also dumps the raw hardware id as hex for hosts that want it
// unquoted rather than parsed out of a discovery ack.
func runPort(ctx context.Context, p *oatmeal.Port, heartbeatEvery time.Duration) error {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			uptime := uint32(time.Since(start).Seconds())
			p.SendHeartbeatNow(time.Now(), 100.0, 0, uptime, "ok", 1)
			if err := p.SendHardwareIDHex(); err != nil {
				return err
			}
		case <-poll.C:
			for {
				v, ok := p.CheckForMessages()
				if !ok {
					break
				}
				if err := p.SendEcho(v); err != nil {
					return err
				}
			}
		}
	}
}

// loggerAdapter narrows *oatmealzero.Logger to oatmeal.Logger; the two
// interfaces already match method-for-method, but keeping a named
// adapter here documents the seam explicitly for readers skimming main.
type loggerAdapter struct{ l *oatmealzero.Logger }

func (a loggerAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a loggerAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a loggerAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a loggerAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
