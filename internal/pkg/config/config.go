package config

import (
    "fmt"
    "github.com/spf13/viper"
)

// Holds all the configuration fields for the rate watcher job.
type Config struct {
    // Source URLs for the daily rate sheet
    RatesURL         string `mapstructure:"RATES_URL"`
    RatesFallbackURL string `mapstructure:"RATES_FALLBACK_URL"`

    // Fetch limits
    HTTPTimeoutSeconds int   `mapstructure:"HTTP_TIMEOUT_SECONDS"`
    MaxFetchBytes      int64 `mapstructure:"MAX_FETCH_BYTES"`

    // Directory layout
    DownloadDir string `mapstructure:"DOWNLOAD_DIR"`
    DataDir     string `mapstructure:"DATA_DIR"`
    CSVDir      string `mapstructure:"CSV_DIR"`

    // Optional shared signature history
    HistoryEnabled bool   `mapstructure:"HISTORY_ENABLED"`
    RedisHost      string `mapstructure:"REDIS_HOST"`
    RedisPort      string `mapstructure:"REDIS_PORT"`
    RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
    RedisDB        int    `mapstructure:"REDIS_DB"`

    // Optional rate indexing
    ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
    IndexName        string `mapstructure:"INDEX_NAME"`

    // Optional metrics push
    PushgatewayURL string `mapstructure:"PUSHGATEWAY_URL"`
    JobName        string `mapstructure:"JOB_NAME"`

    // Logging
    LogLevel string `mapstructure:"LOG_LEVEL"`
    LogFile  string `mapstructure:"LOG_FILE"`
}

// Initializes Viper and unmarshals config into our Config struct.
// It can read from environment variables, config files, etc.
func LoadConfig() (*Config, error) {
    viper.SetDefault("RATES_URL", "https://www.sbi.co.in/documents/16012/1400784/FOREX_CARD_RATES.pdf")
    viper.SetDefault("RATES_FALLBACK_URL", "https://bank.sbi/documents/16012/1400784/FOREX_CARD_RATES.pdf")
    viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
    viper.SetDefault("MAX_FETCH_BYTES", 10*1024*1024)
    viper.SetDefault("DOWNLOAD_DIR", "downloads")
    viper.SetDefault("DATA_DIR", "data")
    viper.SetDefault("CSV_DIR", "csv_files")

    // Signature history defaults (disabled unless switched on)
    viper.SetDefault("HISTORY_ENABLED", false)
    viper.SetDefault("REDIS_HOST", "localhost")
    viper.SetDefault("REDIS_PORT", "6379")
    viper.SetDefault("REDIS_PASSWORD", "")
    viper.SetDefault("REDIS_DB", 0)

    // Rate indexing defaults (empty URL disables the sink)
    viper.SetDefault("ELASTICSEARCH_URL", "")
    viper.SetDefault("INDEX_NAME", "forex_card_rates")

    // Metrics push defaults (empty URL disables the push)
    viper.SetDefault("PUSHGATEWAY_URL", "")
    viper.SetDefault("JOB_NAME", "ratewatch")

    viper.SetDefault("LOG_LEVEL", "info")
    viper.SetDefault("LOG_FILE", "")

    // Read environment variables
    viper.AutomaticEnv()

    var config Config
    if err := viper.Unmarshal(&config); err != nil {
        return nil, fmt.Errorf("failed to unmarshal config: %w", err)
    }

    return &config, nil
}
