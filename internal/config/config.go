package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"questboard/pkg/config"
)

// GamifyConfig tunes the XP award table and notification suppression.
type GamifyConfig struct {
	XPBaseCompletion        int `yaml:"xp_base_completion"`
	XPHighPriorityBonus     int `yaml:"xp_high_priority_bonus"`
	XPCriticalPriorityBonus int `yaml:"xp_critical_priority_bonus"`
	AnnouncedTTLHours       int `yaml:"announced_ttl_hours"`
}

// TimerConfig tunes the heartbeat fold interval, in seconds.
type TimerConfig struct {
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	Gamify GamifyConfig        `yaml:"gamify"`
	Timer  TimerConfig         `yaml:"timer"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)

	applyGamifyDefaults(&cfg.Gamify)
	if cfg.Timer.HeartbeatSeconds <= 0 {
		cfg.Timer.HeartbeatSeconds = 30
	}

	return &cfg
}

func applyGamifyDefaults(g *GamifyConfig) {
	if g.XPBaseCompletion <= 0 {
		g.XPBaseCompletion = 150
	}
	if g.XPHighPriorityBonus <= 0 {
		g.XPHighPriorityBonus = 100
	}
	if g.XPCriticalPriorityBonus <= 0 {
		g.XPCriticalPriorityBonus = 250
	}
	if g.AnnouncedTTLHours <= 0 {
		g.AnnouncedTTLHours = 12
	}
}
