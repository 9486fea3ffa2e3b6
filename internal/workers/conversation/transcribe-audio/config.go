package transcribeaudio

import "time"

type Config struct {
	Timeout       time.Duration
	MaxAudioBytes int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		MaxAudioBytes: 10 << 20,
	}
}
