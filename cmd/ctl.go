package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/waywardwm/wayward/internal/config"
	"github.com/waywardwm/wayward/internal/ipc"
	"github.com/waywardwm/wayward/internal/ui"
)

// The ctl commands talk to a running compositor over its control
// socket. They are one-shot: connect, ask, print, exit.

var ctlDisplay string

func init() {
	for _, c := range []*cobra.Command{statusCmd, windowsCmd, focusCmd, closeCmd, injectCmd} {
		c.Flags().StringVarP(&ctlDisplay, "display", "d", "", "Display name (socket name)")
	}
}

func ctlClient() *ipc.Client {
	display := ctlDisplay
	if display == "" {
		display = config.Get().Compositor.Display
	}
	return ipc.NewClient(config.SocketPath(display))
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running compositor",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ctlClient()
		status, err := client.Status()
		if err != nil {
			fmt.Println(ui.ErrorStyle.Render("compositor is not running"))
			return nil
		}

		fmt.Println(ui.Header("WAYWARD " + status.Display))
		fmt.Println(ui.KV("Uptime", fmt.Sprintf("%ds", status.UptimeSeconds)))
		fmt.Println(ui.KV("Clients", status.Clients))
		fmt.Println(ui.KV("Surfaces", status.Surfaces))
		fmt.Println(ui.KV("Windows", status.Windows))
		fmt.Println(ui.KV("Serial", status.Serial))
		for _, out := range status.Outputs {
			fmt.Println(ui.KV("Output "+out.Name,
				fmt.Sprintf("%dx%d @%gx, %d frames", out.Width, out.Height, out.Scale, out.Frames)))
		}
		return nil
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List windows in stacking order",
	Long:  `List all windows back to front. The last row is the frontmost window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wins, err := ctlClient().Windows()
		if err != nil {
			return fmt.Errorf("failed to list windows: %w", err)
		}
		if len(wins) == 0 {
			fmt.Println(ui.LabelStyle.Render("no windows"))
			return nil
		}

		rows := make([][]string, 0, len(wins))
		for _, w := range wins {
			var flags string
			for _, f := range []struct {
				on bool
				c  string
			}{
				{w.Activated, "A"}, {w.Maximized, "M"}, {w.Fullscreen, "F"},
				{w.Minimized, "m"}, {w.Popup, "p"}, {!w.Mapped, "u"},
			} {
				if f.on {
					flags += f.c
				}
			}
			rows = append(rows, []string{
				strconv.FormatUint(w.ID, 10),
				w.Title,
				w.AppID,
				fmt.Sprintf("%dx%d+%d+%d", w.W, w.H, int(w.X), int(w.Y)),
				flags,
			})
		}
		fmt.Print(ui.Table([]string{"ID", "TITLE", "APP", "GEOMETRY", "FLAGS"}, rows))
		return nil
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus <window-id>",
	Short: "Raise and focus a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid window id %q", args[0])
		}
		if err := ctlClient().FocusWindow(id); err != nil {
			return fmt.Errorf("failed to focus window: %w", err)
		}
		fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("focused window %d", id)))
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <window-id>",
	Short: "Ask a window's client to close it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid window id %q", args[0])
		}
		if err := ctlClient().CloseWindow(id); err != nil {
			return fmt.Errorf("failed to close window: %w", err)
		}
		fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("close sent to window %d", id)))
		return nil
	},
}

var injectCmd = &cobra.Command{
	Use:   "inject <event> [args...]",
	Short: "Synthesize an input event",
	Long: `Synthesize one input event on the running compositor. Events travel
the same path as real backend input, so this is the scripting and
testing entry point for a headless session.

Forms:
  inject pointer-motion <x> <y>
  inject pointer-button <button> press|release
  inject key <keycode> press|release
  inject touch-down <slot> <x> <y>
  inject touch-up <slot>`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parseInject(args)
		if err != nil {
			return err
		}
		if err := ctlClient().Inject(req); err != nil {
			return fmt.Errorf("failed to inject event: %w", err)
		}
		return nil
	},
}

func parseInject(args []string) (ipc.InjectRequest, error) {
	var req ipc.InjectRequest

	argf := func(i int) (float64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("inject %s: missing argument %d", args[0], i)
		}
		return strconv.ParseFloat(args[i], 64)
	}
	pressed := func(i int) (bool, error) {
		if i >= len(args) {
			return false, fmt.Errorf("inject %s: missing press|release", args[0])
		}
		switch args[i] {
		case "press":
			return true, nil
		case "release":
			return false, nil
		default:
			return false, fmt.Errorf("inject %s: want press or release, got %q", args[0], args[i])
		}
	}

	var err error
	switch args[0] {
	case ipc.InjectPointerMotion:
		req.Type = ipc.InjectPointerMotion
		if req.X, err = argf(1); err != nil {
			return req, err
		}
		req.Y, err = argf(2)

	case ipc.InjectPointerButton:
		req.Type = ipc.InjectPointerButton
		var v float64
		if v, err = argf(1); err != nil {
			return req, err
		}
		req.Button = uint32(v)
		req.Pressed, err = pressed(2)

	case ipc.InjectKey:
		req.Type = ipc.InjectKey
		var v float64
		if v, err = argf(1); err != nil {
			return req, err
		}
		req.Key = uint32(v)
		req.Pressed, err = pressed(2)

	case ipc.InjectTouchDown:
		req.Type = ipc.InjectTouchDown
		var v float64
		if v, err = argf(1); err != nil {
			return req, err
		}
		req.Slot = int32(v)
		if req.X, err = argf(2); err != nil {
			return req, err
		}
		req.Y, err = argf(3)

	case ipc.InjectTouchUp:
		req.Type = ipc.InjectTouchUp
		var v float64
		if v, err = argf(1); err != nil {
			return req, err
		}
		req.Slot = int32(v)

	default:
		return req, fmt.Errorf("unknown inject event %q", args[0])
	}
	return req, err
}
