// Missionguide - Conversational guide for the Orbitarium simulator
// License: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbitarium/missionguide/pkg/commands"
	"github.com/orbitarium/missionguide/pkg/config"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Print the loaded command catalog",
		RunE:  runCommands,
	}
}

func runCommands(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	catalogPath := config.ResolveCatalogPath(configPath(), cfg.Commands.CatalogPath)
	registry, err := commands.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("loading command catalog: %w", err)
	}

	fmt.Printf("Catalog: %s (%d commands)\n\n", catalogPath, registry.Count())
	for _, schema := range registry.All() {
		fmt.Printf("%s\n", schema.ID)
		if schema.Description != "" {
			fmt.Printf("  %s\n", schema.Description)
		}
		for _, p := range schema.Parameters {
			line := fmt.Sprintf("  - %s (%s)", p.Name, p.Type)
			if p.Required {
				line += " required"
			}
			if p.Min != nil || p.Max != nil {
				line += " range["
				if p.Min != nil {
					line += fmt.Sprintf("%g", *p.Min)
				}
				line += ".."
				if p.Max != nil {
					line += fmt.Sprintf("%g", *p.Max)
				}
				line += "]"
			}
			if p.Default != nil {
				line += fmt.Sprintf(" default=%v", p.Default)
			}
			fmt.Println(line)
		}
		if schema.Transition != nil {
			fmt.Printf("  transitions via %q\n", schema.Transition.TargetArg)
		}
		fmt.Println()
	}

	if names := registry.PresetNames(); len(names) > 0 {
		fmt.Println("Presets:")
		for _, name := range names {
			preset, _ := registry.Preset(name)
			fmt.Printf("  %s -> %s %v\n", name, preset.Command, preset.Arguments)
		}
	}
	return nil
}
