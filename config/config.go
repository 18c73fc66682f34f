package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Game    GameConfig    `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
}

type MonitorConfig struct {
	Address string `mapstructure:"address"`
}

// GameConfig holds the room defaults applied when a host creates a room
// without explicit settings.
type GameConfig struct {
	MaxPlayers        int `mapstructure:"max_players"`
	ImposterCount     int `mapstructure:"imposter_count"`
	DiscussionSeconds int `mapstructure:"discussion_seconds"`
	VotingSeconds     int `mapstructure:"voting_seconds"`
	MaxRounds         int `mapstructure:"max_rounds"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("monitor.address", ":9090")
	viper.SetDefault("game.max_players", 10)
	viper.SetDefault("game.imposter_count", 1)
	viper.SetDefault("game.discussion_seconds", 60)
	viper.SetDefault("game.voting_seconds", 30)
	viper.SetDefault("game.max_rounds", 3)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Missing config file is fine, defaults apply.
	}

	err = viper.Unmarshal(&config)
	return
}
