// Package main provides the labeltool command line.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"labeltool/internal/config"
	"labeltool/internal/labels"
	"labeltool/internal/labelstore"
	"labeltool/internal/logging"
	"labeltool/internal/scene"
	"labeltool/internal/version"
)

const appTitle = "labeltool"

// app carries what every subcommand needs once flags and config are read.
type app struct {
	v          *viper.Viper
	configFile string
	debug      bool
	settings   *config.Settings
	store      *labelstore.Store
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:           appTitle,
		Short:         "Edit image labels from the command line",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: labeltool.yaml in . or ~/.config/labeltool)")
	flags.BoolVarP(&a.debug, "debug", "d", false, "Enable debug output")
	flags.String("labels-dir", "", "Directory for labels files (default: beside each image)")
	flags.String("id-prefix", "", "Object id prefix for new label files (default: random)")
	flags.Duration("poll-interval", 0, "Assisted region poll interval")

	for key, flag := range map[string]string{
		"store.dir":           "labels-dir",
		"session.idprefix":    "id-prefix",
		"assist.pollinterval": "poll-interval",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		inspectCommand(a),
		fromMaskCommand(a),
		proposeCommand(a),
		drawCommand(a),
		mergeCommand(a),
	)
	return rootCmd
}

// initialize sets up logging and loads the configuration.
func (a *app) initialize() error {
	level := slog.LevelInfo
	if a.debug {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	settings, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.settings = settings
	a.store = labelstore.New(settings.Store.Dir)

	logging.For("main").Debug("configuration loaded", "file", a.v.ConfigFileUsed())
	return nil
}

// openScene loads the labels of an image into a new scene. Images without
// a labels file start with an empty list.
func (a *app) openScene(imagePath string) (*scene.Scene, error) {
	h, err := a.store.Load(imagePath)
	if errors.Is(err, labelstore.ErrNoLabels) {
		h = labels.NewHeader(filepath.Base(imagePath))
	} else if err != nil {
		return nil, err
	}
	if h.SessionID == "" {
		h.SessionID = a.settings.Session.IDPrefix
	}

	s := scene.New(nil)
	s.SetModel(h)
	return s, nil
}

// attachStore saves the scene's labels after changes. The returned function
// writes anything still pending.
func (a *app) attachStore(s *scene.Scene, imagePath string) func() error {
	n := labelstore.NewNotifier(a.store, imagePath, a.settings.Store.SaveDelay)
	n.Attach(s)
	return n.Flush
}
