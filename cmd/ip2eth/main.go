package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/netforge/ip2eth/internal/api"
	"github.com/netforge/ip2eth/internal/bridge"
	"github.com/netforge/ip2eth/internal/config"
	"github.com/netforge/ip2eth/internal/iface"
	"github.com/netforge/ip2eth/internal/logger"
	"github.com/netforge/ip2eth/internal/neighbor"
	"github.com/netforge/ip2eth/internal/probe"
)

var (
	configPath   = flag.String("config", "", "Path to YAML config file")
	bridgeIface  = flag.String("interface", "", "Interface to bridge")
	bridgeIP     = flag.String("ip", "", "IPv4 address to answer resolution requests for")
	apiAddress   = flag.String("listen", "", "Address for the API server")
	mirrorKernel = flag.Bool("mirror", false, "Mirror learned mappings into the kernel neighbor table")
	debugMode    = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	if *bridgeIface != "" {
		cfg.Interface = *bridgeIface
	}
	if *bridgeIP != "" {
		cfg.IP = *bridgeIP
	}
	if *apiAddress != "" {
		cfg.Listen = *apiAddress
	}
	if *mirrorKernel {
		cfg.Mirror = true
	}
	if *debugMode {
		cfg.Debug = true
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Interface == "" {
		log.Fatal("an interface must be specified with --interface or the config file")
	}
	ip, err := netip.ParseAddr(cfg.IP)
	if err != nil || !ip.Unmap().Is4() {
		log.Fatalw("a valid IPv4 address must be specified with --ip or the config file", "ip", cfg.IP)
	}

	hw, err := hardwareAddr(cfg)
	if err != nil {
		log.Fatalw("failed to determine hardware address", "err", err)
	}

	opts := []iface.Option{iface.WithLogger(log)}
	var mirror *neighbor.Mirror
	if cfg.Mirror {
		mirror, err = neighbor.NewMirror(cfg.Interface, log)
		if err != nil {
			log.Fatalw("failed to initialize kernel mirror", "err", err)
		}
		opts = append(opts, iface.WithLearnFunc(mirror.Set))
	}

	ifc := iface.New(hw, ip, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := bridge.OpenPcap(ctx, cfg.Interface, log)
	if err != nil {
		log.Fatalw("failed to open capture", "err", err)
	}

	b := bridge.New(ifc, conn, log, bridge.WithTickInterval(cfg.TickInterval.Duration))

	a := &api.API{State: b}
	http.HandleFunc("/neighbors", a.ListNeighborsHandler)
	http.HandleFunc("/pending", a.ListPendingHandler)
	http.HandleFunc("/stats", a.StatsHandler)

	go func() {
		log.Infow("API server listening", "addr", cfg.Listen)
		if err := http.ListenAndServe(cfg.Listen, nil); err != nil {
			log.Errorw("HTTP server failed", "err", err)
		}
	}()

	if cfg.PingInterval.Duration > 0 {
		go probe.New(b, cfg.PingInterval.Duration, log).Run(ctx)
	}

	log.Infow("bridge running", "interface", cfg.Interface, "hwaddr", hw.String(), "ip", ip.String())
	runErr := b.Run(ctx)

	if mirror != nil {
		mirror.Cleanup()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalw("bridge stopped", "err", runErr)
	}
	log.Info("shutting down")
}

func hardwareAddr(cfg config.Config) (net.HardwareAddr, error) {
	if cfg.HardwareAddr != "" {
		return net.ParseMAC(cfg.HardwareAddr)
	}

	link, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, err
	}
	return link.HardwareAddr, nil
}
