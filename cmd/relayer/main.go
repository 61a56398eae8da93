// Command relayer is the process entrypoint: it loads configuration,
// wires the supervisor's collaborators, and runs the event loop until an
// interrupt or terminate signal tells it to shut down: a single
// urfave/cli.App with a top-level "config" flag and one command per
// entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/command"
	"github.com/relaygo/relayer/common"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/filter"
	"github.com/relaygo/relayer/internal/chainmock"
	"github.com/relaygo/relayer/logging"
	"github.com/relaygo/relayer/rest"
	"github.com/relaygo/relayer/supervisor"
	"github.com/relaygo/relayer/workers"
)

const defaultConfigPath = "relayer.yaml"

func main() {
	app := &cli.App{
		Name:                 "relayer",
		Usage:                "inter-chain relayer supervisor",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: defaultConfigPath,
				Usage: "relayer config file to load",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			startCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var startCommand = &cli.Command{
	Name:  "start",
	Usage: "load config and run the supervisor loop until interrupted",
	Action: func(c *cli.Context) error {
		return run(c.String("config"), c.Bool("verbose"))
	},
}

// run loads cfgPath, builds the supervisor and its collaborators, and
// blocks on Run until ctx is cancelled by SIGINT/SIGTERM.
func run(cfgPath string, verbose bool) error {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logging.Init(l)
		}
	}
	defer func() { _ = logging.Sync() }()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logStartupConfig(cfg)

	// A concrete chain.Factory belongs to a chain driver: it builds real
	// RPC-backed Handles per chain type. Until one is wired in,
	// chainmock stands in so `start` has a runnable default instead of
	// failing closed; swap mockFactory below for a real driver's factory
	// when one is available.
	factory := mockFactory()

	cmds := command.NewQueue()

	var restServer *rest.Server
	if cfg.Global.RESTListenAddr != "" {
		restServer = rest.New(cfg.Global.RESTListenAddr)
		go func() {
			if err := restServer.Serve(); err != nil {
				logging.L().Error("rest server stopped", zap.Error(err))
			}
		}()
	}

	sup := supervisor.New(cfg, factory, filter.DefaultTrust, workers.DefaultFactories(), cmds, restServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		reply := make(chan struct{}, 1)
		cmds.Send(command.NewStop(reply))
	}()

	if err := sup.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	if restServer != nil {
		_ = restServer.Shutdown(context.Background())
	}
	return nil
}

// logStartupConfig logs each configured chain's relay mode once at
// start.
func logStartupConfig(cfg *config.Config) {
	for id, cc := range cfg.Chains {
		logging.L().Info("chain configured",
			zap.String("chain_id", string(id)),
			zap.String("rpc_addr", cc.RPCAddr),
			zap.String("clients", common.IsEnabled(cc.Mode.Clients.Enabled)),
			zap.String("connections", common.IsEnabled(cc.Mode.Connections.Enabled)),
			zap.String("channels", common.IsEnabled(cc.Mode.Channels.Enabled)),
			zap.String("packets", common.IsEnabled(cc.Mode.Packets.Enabled)),
		)
	}
}

// mockFactory returns a chain.Factory backed by internal/chainmock, the
// same in-memory double the test suites use. It exists so `relayer
// start` has something to run against before a real chain driver is
// wired in; every mock chain it spawns starts from empty on-chain state.
func mockFactory() chain.Factory {
	return chainmock.Factory(nil)
}
