// Command polyedit runs mesh-editing scripts against a scene and reports
// what they built.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/polyedit/pkg/config"
	"github.com/chazu/polyedit/pkg/meshvalidate"
	"github.com/chazu/polyedit/pkg/model"
	"github.com/chazu/polyedit/pkg/spatial"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg config.Config

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "polyedit",
	Short: "Scriptable mesh editing with undo, repair and snapping",
	Long: `polyedit evaluates Lisp scripts that build and edit polygon meshes.
Every edit goes through the command history, vertex edits are repaired and
checked for exposed back faces, and meshes can be snapped to their
neighbours through a spatial index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		model.SetLogger(logger)
		spatial.SetLogger(logger)
		meshvalidate.SetLogger(logger)

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "polyedit.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
