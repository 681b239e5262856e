package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/conforme/conforme-cli/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the loaded compliance rule categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := rules.NewRepository(cfg.Paths.RulesDir)

		categories, err := repo.Load(true)
		if err != nil {
			return eris.Wrap(err, "load rules")
		}

		if len(categories) == 0 {
			fmt.Println("no rule categories found in", cfg.Paths.RulesDir)
			return nil
		}

		for _, cat := range categories {
			fmt.Printf("%s (%d regras)\n", cat.Name, len(cat.Rules))
			for _, rule := range cat.Rules {
				fmt.Printf("  - %s\n", rule)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
