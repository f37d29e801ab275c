package main

import (
	"embed"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/meadow/pkg/config"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// parseFlags reads the desktop app's flags from args, which excludes the
// program name. Unknown flags are an error rather than an exit.
func parseFlags(args []string, stderr io.Writer) (configPath string, err error) {
	fs := flag.NewFlagSet("meadow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "meadow.yaml", "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return configPath, nil
}

func main() {
	configPath, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "path", configPath, "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	app := NewApp(cfg)
	err = wails.Run(&options.App{
		Title:  "Meadow",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		slog.Error("wails", "err", err)
		os.Exit(1)
	}
}
