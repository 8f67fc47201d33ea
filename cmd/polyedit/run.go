package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const watchDebounce = 200 * time.Millisecond

var (
	runWatch  bool
	runFormat string
)

var runCmd = &cobra.Command{
	Use:   "run [script]",
	Short: "Evaluate a script and print the scene it builds",
	Long: `Evaluate a script against a fresh scene and print each mesh with its
face, vertex and triangle counts, the meshes its bounds overlap and any
validation problems. With --watch the script is evaluated again every time
it is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "re-run the script when it changes")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "output format: text or yaml")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFormat != "text" && runFormat != "yaml" {
		return fmt.Errorf("unknown format %q", runFormat)
	}
	path := args[0]
	app := NewApp(cfg, logger)
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.Updater().Run(ctx) })

	changes := make(chan struct{}, 1)
	if runWatch {
		g.Go(func() error { return watchFile(ctx, path, watchDebounce, changes) })
	}

	// The model is owned by this goroutine for its whole life.
	g.Go(func() error {
		defer cancel()
		for {
			if err := evaluateFile(ctx, app, path, out); err != nil {
				return err
			}
			if !runWatch {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				fmt.Fprintf(out, "\n--- %s changed, re-running ---\n", path)
			}
		}
	})
	return g.Wait()
}

func evaluateFile(ctx context.Context, app *App, path string, out io.Writer) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	result := app.Evaluate(ctx, string(source))
	if runFormat == "yaml" {
		return yaml.NewEncoder(out).Encode(result)
	}
	printResult(out, path, result)
	return nil
}

func printResult(out io.Writer, path string, r EvalResult) {
	fmt.Fprintf(out, "Script: %s\n", path)
	if r.Value != "" {
		fmt.Fprintf(out, "Value: %s\n", r.Value)
	}
	fmt.Fprintf(out, "Commands applied: %d\n", r.Applied)
	fmt.Fprintf(out, "Undo steps: %d  Redo steps: %d\n\n", r.UndoSteps, r.RedoSteps)

	fmt.Fprintf(out, "Meshes (%d):\n", len(r.Meshes))
	for _, m := range r.Meshes {
		fmt.Fprintf(out, "  %-10s faces=%-4d vertices=%-4d triangles=%-4d color=%s",
			m.Name, m.Faces, m.Vertices, m.Triangles, m.Color)
		if m.Group != 0 {
			fmt.Fprintf(out, " group=%d", m.Group)
		}
		if len(m.Overlaps) > 0 {
			fmt.Fprintf(out, " overlaps=%v", m.Overlaps)
		}
		fmt.Fprintln(out)
		for _, p := range m.Problems {
			fmt.Fprintf(out, "    problem: %s\n", p)
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintln(out, e)
	}
}
