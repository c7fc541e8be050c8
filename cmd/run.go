package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/waywardwm/wayward/internal/backend"
	"github.com/waywardwm/wayward/internal/comp"
	"github.com/waywardwm/wayward/internal/config"
	"github.com/waywardwm/wayward/internal/geometry"
	"github.com/waywardwm/wayward/internal/ipc"
	"github.com/waywardwm/wayward/internal/logger"
	"github.com/waywardwm/wayward/internal/render"
)

var (
	runDisplay   string
	runFrameRate int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the compositor",
	Long: `Run the compositor on the headless backend. Outputs come from the
config file; with none configured a single 1280x720 output is created.
The control socket for the ctl commands is opened alongside.`,
	RunE: runCompositor,
}

func init() {
	runCmd.Flags().StringVarP(&runDisplay, "display", "d", "", "Display name (socket name)")
	runCmd.Flags().IntVar(&runFrameRate, "frame-rate", 0, "Frames per second")

	viper.BindPFlag("compositor.display", runCmd.Flags().Lookup("display"))
	viper.BindPFlag("compositor.frame_rate", runCmd.Flags().Lookup("frame-rate"))
}

func runCompositor(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if runDisplay != "" {
		cfg.Compositor.Display = runDisplay
	}
	if runFrameRate > 0 {
		cfg.Compositor.FrameRate = runFrameRate
	}

	hl := backend.NewHeadless(outputsFromConfig(cfg)...)
	renderer := render.NewSoftware(hl.Present)
	srv := comp.New(cfg, hl, renderer)

	sock := ipc.NewSocketServer(config.SocketPath(cfg.Compositor.Display), srv)
	if err := sock.Start(); err != nil {
		return fmt.Errorf("failed to start control socket: %w", err)
	}
	defer sock.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("received %v, shutting down", sig)
		cancel()
	}()

	logger.Infof("wayward %s starting on display %q", Version, cfg.Compositor.Display)
	return srv.Run(ctx)
}

// outputsFromConfig builds the headless output list. Nil means the
// backend's default single output.
func outputsFromConfig(cfg *config.Config) []*backend.Output {
	var outs []*backend.Output
	for i, oc := range cfg.Outputs {
		name := oc.Name
		if name == "" {
			name = fmt.Sprintf("HEADLESS-%d", i+1)
		}
		scale := oc.Scale
		if scale <= 0 {
			scale = 1
		}
		if oc.Width <= 0 || oc.Height <= 0 {
			logger.Warnf("output %s: ignoring non-positive size %dx%d", name, oc.Width, oc.Height)
			continue
		}
		outs = append(outs, &backend.Output{
			Name:     name,
			Size:     geometry.Size{W: int32(oc.Width), H: int32(oc.Height)},
			Position: geometry.Point{X: float64(oc.X), Y: float64(oc.Y)},
			Scale:    scale,
		})
	}
	return outs
}
