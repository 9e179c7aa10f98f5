package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-interviewer"
)

type Config struct {
	AI      *AIConfig      `mapstructure:"ai"`
	Profile map[string]any `mapstructure:"profile"`
	Report  *ReportConfig  `mapstructure:"report"`
	Serve   *ServeConfig   `mapstructure:"serve"`
}

type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api-key"`
	APIKeyFile     string        `mapstructure:"api-key-file"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxLogLength   int           `mapstructure:"max-log-length"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServeConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-interviewer is a mock job interview in the terminal driven by a language model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.api-key-file", "HH_INTERVIEWER_API_KEY_FILE"); err != nil {
		log.Fatalf("binding HH_INTERVIEWER_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.request-timeout", "2m")
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("serve.listen", "127.0.0.1:8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("provider", "", "language model provider: openai, gemini or mock")
	rootCmd.PersistentFlags().String("model", "", "language model name (provider default when empty)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("ai.provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("ai.model", rootCmd.PersistentFlags().Lookup("model"))
}

func initConfig() {
	// A missing .env is normal; API keys usually come from the environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Report == nil {
		config.Report = &ReportConfig{}
	}
	if config.Serve == nil {
		config.Serve = &ServeConfig{}
	}

	return config, nil
}
