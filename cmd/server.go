package main

import (
	"fmt"
	"log"

	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the account HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		gin.SetMode(cfg.GinMode)

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Printf("Failed to release resources: %v", err)
			}
		}()

		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 0, "listen port (overrides PORT)")
}
