package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which credentials are set and which features they enable",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Credentials:")
		for _, s := range appConfig.SecretsReport() {
			if s.Present {
				fmt.Printf("  ✅ %-18s %s\n", s.Name, s.Masked)
			} else {
				fmt.Printf("  ❌ %-18s not set\n", s.Name)
			}
		}

		fmt.Println()
		fmt.Println("Features:")
		printCheck("Discord ingestion", appConfig.ValidateIngest())
		printCheck("Extraction engine", appConfig.ValidateEngine())
		printCheck("Linear tickets", appConfig.ValidateEscalation())

		fmt.Println()
		fmt.Printf("Mode:    %s\n", appMode)
		fmt.Printf("Engine:  %s\n", appConfig.Engine)
		if appConfig.PostgresDSN != "" {
			fmt.Println("Store:   postgres")
		} else {
			fmt.Printf("Store:   sqlite (%s)\n", appConfig.SQLitePath)
		}
		fmt.Printf("Qdrant:  %s:%d/%s\n", appConfig.QdrantHost, appConfig.QdrantPort, appConfig.QdrantCollection)
		return nil
	},
}

func printCheck(name string, err error) {
	if err != nil {
		fmt.Printf("  ❌ %-18s %v\n", name, err)
		return
	}
	fmt.Printf("  ✅ %s\n", name)
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}
