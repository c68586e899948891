package main

import "time"

type Config struct {
	BufferSize        int           `env:"BUFFER_SIZE,required=true"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	MaxMessageLength  int           `env:"MAX_MESSAGE_LENGTH,default=2000"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	TokenDuration     time.Duration `env:"TOKEN_DURATION,default=24h"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH"` // empty disables search
	CensoredWords     string        `env:"CENSORED_WORDS"` // comma separated, empty disables moderation
	CensoredCharacter string        `env:"CENSORED_CHARACTER,default=*"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=*"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
}
