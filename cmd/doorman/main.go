package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// .env opcional, solo para desarrollo
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "doorman",
		Short:         "Servicio de autenticación OAuth2 con puente de login legacy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("DOORMAN_CONFIG"), "ruta del config.yaml (env DOORMAN_CONFIG)")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newSeedCmd(&cfgPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("doorman", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
