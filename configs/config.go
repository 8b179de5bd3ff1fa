package configs

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Savings struct {
		EarlyWithdrawalPenaltyRate float64 `mapstructure:"early-withdrawal-penalty-rate"`
	} `mapstructure:"savings"`
	PayPal struct {
		BaseURL      string `mapstructure:"base-url"`
		ClientID     string `mapstructure:"client-id"`
		ClientSecret string `mapstructure:"client-secret"`
	} `mapstructure:"paypal"`
}

// PenaltyRate returns the early-withdrawal rate as a decimal.
func (c *Config) PenaltyRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Savings.EarlyWithdrawalPenaltyRate)
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("savings.early-withdrawal-penalty-rate", 0.10)
	viper.SetDefault("paypal.base-url", "https://api-m.paypal.com")

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if !errors.As(err, &fileLookupError) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
