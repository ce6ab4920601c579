package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/castkit/castd/internal/adapters/dev"
	"github.com/castkit/castd/internal/cliconfig"
	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/metrics"
	"github.com/castkit/castd/internal/server"
	"github.com/castkit/castd/pkg/log"
)

const usageText = `castd %s: an AirPlay-style screen mirroring receiver
Usage: castd [options]
Options:
-n name     Network name of the mirroring service
-s wxh[@r]  Display resolution [refresh rate], default 1920x1080[@60]
-o          Set mirror "overscanned" mode on (not usually needed)
-fps n      Maximum allowed streaming framerate, default 30, max 255
-f {H|V|I}  Horizontal|Vertical flip, or both = Inversion = rotate 180 deg
-r {R|L}    Rotate 90 degrees Right (cw) or Left (ccw)
-p          Use legacy fixed ports UDP 7011:6001:6000 TCP 7100:7000:7001
-p n        Use TCP and UDP ports n,n+1,n+2; range 1024-65535
            use "-p n1,n2,n3" to set each port, "n1,n2" for n3 = n2+1
            "-p tcp n..." or "-p udp n..." sets TCP or UDP ports only
-m          Use a random device identifier (for concurrent instances)
-a          Disable audio, video output only
-d          Toggle debug logging
-vs name    Choose the videosink; default "autovideosink"
-vs 0       Streamed audio only, with no video display window
-as name    Choose the audiosink; default "autoaudiosink"
-as 0       (or -a) Turn audio off, video output only
-t n        Relaunch server if no connection existed in last n seconds
-c path     Config file (default $HOME/.castd/config.toml)
-h, -v      Display this help and version information
`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// usage renders the option table, led by the version string the way the
// help/version flags promise.
func usage() string {
	return fmt.Sprintf(usageText, fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH))
}

func main() {
	root := &cobra.Command{
		Use:   "castd",
		Short: "AirPlay-style screen mirroring receiver",
		// The legacy single-dash grammar (-fps, -p with an optional
		// value, -p tcp n) cannot be expressed with pflag; the token
		// walk lives in cliconfig, including -h and -v.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}

	if err := root.Execute(); err != nil {
		log.NewZerologAdapter(false).Error("castd", log.Err(err))
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	cfg := cliconfig.DefaultConfig()

	// Config file first (lowest precedence), then the token grammar.
	cfgPath, err := cliconfig.ConfigFilePath(args)
	if err != nil {
		return err
	}
	if cfgPath == "" {
		cfgPath = cliconfig.DefaultConfigPath()
	}
	if cfgPath != "" && cliconfig.FileExists(cfgPath) {
		fc, err := cliconfig.LoadFileConfig(cfgPath)
		if err != nil {
			return err
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc); err != nil {
			return err
		}
	} else {
		cfgPath = ""
	}

	if err := cfg.ParseArgs(args); err != nil {
		if errors.Is(err, cliconfig.ErrHelp) {
			fmt.Print(usage())
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.NewZerologAdapter(cfg.Debug)

	var id hwaddr.DeviceID
	found := false
	if !cfg.RandomID {
		id, found = hwaddr.Discover()
	}
	if !found {
		id = hwaddr.Synthesize()
		logger.Info("using randomly-generated device identifier",
			log.String("device_id", id.String()),
		)
	}

	cfg.AppendHostname()

	if cfg.UDPPorts[0] != 0 {
		logger.Info("using fixed network ports",
			log.Any("udp", cfg.UDPPorts),
			log.Any("tcp", cfg.TCPPorts),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfgPath != "" {
		stop, err := cliconfig.WatchFile(ctx, cfgPath, logger)
		if err != nil {
			logger.Warn("config watcher unavailable", log.Err(err))
		} else {
			defer stop()
		}
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go m.Serve(ctx, cfg.MetricsAddr, logger)
	}

	activity := server.NewActivity()
	bridge := server.NewBridge(activity, logger, m)
	orch := server.NewOrchestrator(dev.Collaborators(logger), logger, bridge)
	ctrl := server.NewController(cfg, id, orch, activity, logger, m)

	return ctrl.Run(ctx)
}

// exitCode maps failures to the documented process exit codes: 1 for
// configuration problems, 2-6 for the orchestrator startup failure classes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, server.ErrEngineInit):
		return 2
	case errors.Is(err, server.ErrRenderLoggerInit):
		return 3
	case errors.Is(err, server.ErrVideoInit):
		return 4
	case errors.Is(err, server.ErrAudioInit):
		return 5
	case errors.Is(err, server.ErrDiscoveryInit):
		return 6
	default:
		return 1
	}
}
