package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hb-chen/skillrt/internal/adapter/bus"
	"github.com/hb-chen/skillrt/internal/adapter/console"
	"github.com/hb-chen/skillrt/internal/config"
	"github.com/hb-chen/skillrt/internal/dispatch"
	"github.com/hb-chen/skillrt/internal/session"
	"github.com/hb-chen/skillrt/pkg/logger"
)

var listenerType string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a conversation session",
	Long: `Start the dispatch runtime. Commands are read from the console or a
websocket bus until input ends or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Setup signal handling
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runtime, cleanup, err := initRuntime(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Infof("Session %s started", runtime.Session().ID())
		return runtime.Run(ctx)
	},
}

func init() {
	runCmd.Flags().StringVar(&listenerType, "listener", "", "console or bus (overrides config file)")
	_ = config.Viper().BindPFlag("listener.type", runCmd.Flags().Lookup("listener"))

	rootCmd.AddCommand(runCmd)
}

type listenSpeaker interface {
	dispatch.Listener
	session.Speaker
	io.Closer
}

func openIO(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (listenSpeaker, error) {
	switch cfg.Listener.Type {
	case config.ListenerBus:
		return bus.Dial(ctx, cfg.Listener.BusURL, cfg.Listener.Name)
	default:
		return console.New(in, out, cfg.Listener.Prompt), nil
	}
}

// initRuntime wires store, registry, router, session and listener. cleanup
// releases them in reverse order.
func initRuntime(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*dispatch.Runtime, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { store.Close() })

	registry, err := initRegistry(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	rt, err := initRouter(cfg, registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	tr := initTracer(cfg)
	closers = append(closers, func() { tr.Close() })

	port, err := openIO(ctx, cfg, in, out)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { port.Close() })

	sess := session.New(rt, store, port,
		session.WithConfig(sessionConfig(cfg)),
		session.WithTracer(tr))

	runtime := dispatch.New(sess, port, dispatch.WithConfig(dispatch.Config{
		QueueSize:      cfg.Dispatch.QueueSize,
		ConfirmTimeout: cfg.Dispatch.ConfirmTimeoutDuration(),
	}))
	return runtime, cleanup, nil
}
