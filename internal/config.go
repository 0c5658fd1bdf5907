package internal

type Config struct {
	Host               string `env:"HOST,default=127.0.0.1"`
	Port               int    `env:"PORT,default=8080"`
	BindAttempts       int    `env:"BIND_ATTEMPTS,default=10"`
	BadgerFilepath     string `env:"BADGER_FILEPATH,required=true"`
	LogLevel           string `env:"LOG_LEVEL,default=INFO"`
	EmptyLineTolerance int    `env:"EMPTY_LINE_TOLERANCE,default=3"`
}
