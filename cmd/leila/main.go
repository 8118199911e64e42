package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/leilabot/leila/internal/config"
	"github.com/leilabot/leila/internal/gateway"
)

var rootCmd = &cobra.Command{
	Use:   "leila",
	Short: "leila - conversational companion bot",
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (channels + scheduler)",
	RunE:  runGateway,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize the config file",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show leila status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(gatewayCmd, onboardCmd, statusCmd)
}

func main() {
	// A local .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set the telegram token and provider key\n", cfgPath)
	fmt.Println("  2. Or set BOT_TOKEN and OPENAI_API_KEY environment variables")
	fmt.Println("  3. Run 'leila gateway' to start the bot")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Persona: %s (%s, %s)\n", cfg.Persona.Name, cfg.Persona.Location, cfg.Persona.Timezone)

	if cfg.Provider.APIKey != "" {
		fmt.Println("Provider: configured")
	} else {
		fmt.Println("Provider: not configured (set OPENAI_API_KEY)")
	}

	if cfg.Channels.Telegram.Enabled {
		fmt.Println("Telegram: enabled")
	} else {
		fmt.Println("Telegram: disabled (set BOT_TOKEN)")
	}

	if cfg.Weather.APIKey != "" {
		fmt.Println("Weather: configured")
	} else {
		fmt.Println("Weather: not configured (set OPENWEATHER_API_KEY)")
	}

	fmt.Printf("Memory: %d turns per conversation, %d conversations\n",
		cfg.Memory.MaxTurns, cfg.Memory.MaxConversations)

	return nil
}
