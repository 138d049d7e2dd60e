// cmd/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waypoint-sequencer/internal/config"
	"waypoint-sequencer/internal/di"
	"waypoint-sequencer/internal/goals"
)

var (
	envFile       string
	waypointsFile string
	autoStart     bool
)

var rootCmd = &cobra.Command{
	Use:   "waypoint-sequencer",
	Short: "Drives a VDA5050 robot through a fixed list of waypoints",
	Long: `waypoint-sequencer sends one navigation goal at a time to a robot over MQTT,
advances when the robot reports success, and exposes mission control over HTTP.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the broker and serve the mission control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// DI 컨테이너 생성
		container, err := di.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create DI container: %w", err)
		}
		defer container.Cleanup()

		// 우아한 종료 처리
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		container.Logger.Infof("🎯 Waypoint sequencer started (robot %s/%s, frame %q)",
			cfg.RobotManufacturer, cfg.RobotSerialNumber, cfg.GlobalFrame)

		if err := container.MissionService.Run(ctx, autoStart); err != nil {
			return fmt.Errorf("mission service stopped: %w", err)
		}

		container.Logger.Infof("✅ Waypoint sequencer shutdown completed")
		return nil
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Validate the waypoint file and print the goal sequence as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := goals.LoadFile(cfg.WaypointsFile, cfg.GlobalFrame)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(store.PoseArray())
	},
}

func loadConfig() (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if waypointsFile != "" {
		cfg.WaypointsFile = waypointsFile
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&waypointsFile, "waypoints", "", "waypoint YAML file (overrides WAYPOINTS_FILE)")
	runCmd.Flags().BoolVar(&autoStart, "auto-start", false, "start a mission as soon as the service is up")

	rootCmd.AddCommand(runCmd, goalsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
