package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [script]",
	Short: "Evaluate a script and fail if any mesh is invalid",
	Long: `Evaluate a script and run the structural and back-face checks on every
mesh it builds. The command exits non-zero when the script fails or any
mesh has a problem.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	app := NewApp(cfg, logger)
	r := app.Evaluate(cmd.Context(), string(source))
	out := cmd.OutOrStdout()

	for _, m := range r.Meshes {
		for _, p := range m.Problems {
			fmt.Fprintf(out, "%s: %s\n", m.Name, p)
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintln(out, e)
	}
	switch {
	case len(r.Errors) > 0:
		return fmt.Errorf("%s: %d script error(s)", args[0], len(r.Errors))
	case r.Invalid() > 0:
		return fmt.Errorf("%s: %d of %d mesh(es) invalid", args[0], r.Invalid(), len(r.Meshes))
	}
	fmt.Fprintf(out, "%s: %d mesh(es) ok\n", args[0], len(r.Meshes))
	return nil
}
