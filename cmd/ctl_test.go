package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waywardwm/wayward/internal/config"
	"github.com/waywardwm/wayward/internal/ipc"
)

func TestParseInject(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    ipc.InjectRequest
		wantErr bool
	}{
		{
			name: "pointer motion",
			args: []string{"pointer-motion", "640.5", "360"},
			want: ipc.InjectRequest{Type: ipc.InjectPointerMotion, X: 640.5, Y: 360},
		},
		{
			name: "pointer button press",
			args: []string{"pointer-button", "272", "press"},
			want: ipc.InjectRequest{Type: ipc.InjectPointerButton, Button: 272, Pressed: true},
		},
		{
			name: "pointer button release",
			args: []string{"pointer-button", "272", "release"},
			want: ipc.InjectRequest{Type: ipc.InjectPointerButton, Button: 272},
		},
		{
			name: "key press",
			args: []string{"key", "30", "press"},
			want: ipc.InjectRequest{Type: ipc.InjectKey, Key: 30, Pressed: true},
		},
		{
			name: "touch down",
			args: []string{"touch-down", "0", "100", "200"},
			want: ipc.InjectRequest{Type: ipc.InjectTouchDown, Slot: 0, X: 100, Y: 200},
		},
		{
			name: "touch up",
			args: []string{"touch-up", "2"},
			want: ipc.InjectRequest{Type: ipc.InjectTouchUp, Slot: 2},
		},
		{
			name:    "unknown event",
			args:    []string{"pointer-warp", "1", "2"},
			wantErr: true,
		},
		{
			name:    "missing coordinate",
			args:    []string{"pointer-motion", "10"},
			wantErr: true,
		},
		{
			name:    "bad press state",
			args:    []string{"key", "30", "tap"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInject(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Outputs: []config.OutputConfig{
			{Name: "LEFT", Width: 1920, Height: 1080},
			{Width: 1280, Height: 720, X: 1920, Scale: 2},
			{Name: "BROKEN", Width: 0, Height: 1080},
		},
	}

	outs := outputsFromConfig(cfg)
	require.Len(t, outs, 2, "zero-size output must be dropped")

	assert.Equal(t, "LEFT", outs[0].Name)
	assert.EqualValues(t, 1920, outs[0].Size.W)
	assert.Equal(t, 1.0, outs[0].Scale, "scale defaults to 1")

	assert.Equal(t, "HEADLESS-2", outs[1].Name, "unnamed outputs get positional names")
	assert.Equal(t, 1920.0, outs[1].Position.X)
	assert.Equal(t, 2.0, outs[1].Scale)
}

func TestOutputsFromConfigEmpty(t *testing.T) {
	assert.Empty(t, outputsFromConfig(&config.Config{}),
		"empty config defers to the backend default output")
}

func TestCommandRegistration(t *testing.T) {
	for _, name := range []string{"run", "status", "windows", "focus", "close", "inject"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
