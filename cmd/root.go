package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonyyueyu/optimization/pkg/config"
	"github.com/tonyyueyu/optimization/pkg/headless"
	"github.com/tonyyueyu/optimization/pkg/logger"
	"github.com/tonyyueyu/optimization/pkg/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "optsolve",
	Short: "Chat with an optimization solving service",
	Long: `optsolve is a chat client for a streaming optimization solver.
Describe a problem in plain language and watch it get modeled and
solved step by step. Sessions persist as threads.`,
	Run: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("headless") {
			runHeadlessMode()
			return
		}

		controller, err := buildController()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		app := tui.NewApp(controller, logger.WithPrefix("tui"))
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runHeadlessMode() {
	prompt := viper.GetString("prompt")
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "Error: --headless requires --prompt")
		os.Exit(1)
	}

	controller, err := buildController()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if attach := viper.GetString("attach"); attach != "" {
		if err := controller.UploadFile(context.Background(), attach); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := headless.RunHeadless(controller, prompt, viper.GetBool("plain")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ~/.optsolve/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("owner", "", "owner id for session threads")
	viper.BindPFlag("owner", rootCmd.PersistentFlags().Lookup("owner"))

	rootCmd.Flags().StringP("prompt", "p", "", "solve a single prompt without entering the TUI")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().BoolP("headless", "H", false, "run without TUI (requires --prompt)")
	viper.BindPFlag("headless", rootCmd.Flags().Lookup("headless"))

	rootCmd.Flags().Bool("plain", false, "disable styling and syntax highlighting")
	viper.BindPFlag("plain", rootCmd.Flags().Lookup("plain"))

	rootCmd.Flags().StringP("attach", "a", "", "attach a data file as context for the prompt")
	viper.BindPFlag("attach", rootCmd.Flags().Lookup("attach"))
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}
