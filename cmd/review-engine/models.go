// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/council"
	"github.com/pdiddy/review-engine/internal/ollama"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage local inference models",
}

// --- status subcommand ---

var modelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama connectivity and installed models",
	RunE:  runModelsStatus,
}

// --- pull subcommand ---

var modelsPullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Download a model (Ctrl-C cancels)",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsPull,
}

func init() {
	modelsCmd.AddCommand(modelsStatusCmd)
	modelsCmd.AddCommand(modelsPullCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsStatus(cmd *cobra.Command, args []string) error {
	client := newOllamaClient(cmd, newLogger(cmd))

	version, err := client.CheckConnection(cmd.Context())
	if err != nil {
		fmt.Println("Ollama: not reachable")
		fmt.Println("Install it from https://ollama.com and start the service.")
		return err
	}
	fmt.Printf("Ollama: connected (version %s)\n", version)

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	installed := map[string]bool{}
	fmt.Println("\nInstalled models:")
	if len(models) == 0 {
		fmt.Println("  (none)")
	}
	for _, m := range models {
		installed[m.Name] = true
		fmt.Printf("  %-30s %6.1f GB\n", m.Name, float64(m.Size)/(1<<30))
	}

	fmt.Println("\nCouncil panel:")
	for _, name := range council.DefaultPanel {
		state := "missing (review-engine models pull " + name + ")"
		if installed[name] {
			state = "installed"
		}
		fmt.Printf("  %-30s %s\n", name, state)
	}
	return nil
}

func runModelsPull(cmd *cobra.Command, args []string) error {
	name := args[0]
	client := newOllamaClient(cmd, newLogger(cmd))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var lastStatus string
	err := client.Pull(ctx, name, func(p ollama.PullProgress) {
		switch {
		case p.Total > 0:
			fmt.Printf("\r%s: %3.0f%% (%d / %d MB)   ",
				p.Status, 100*float64(p.Completed)/float64(p.Total),
				p.Completed/(1<<20), p.Total/(1<<20))
		case p.Status != lastStatus:
			fmt.Printf("\n%s", p.Status)
		}
		lastStatus = p.Status
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %s\n", name)
	return nil
}
