// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/remoteaudio.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("audio.samplerate", 48000)
	viper.SetDefault("audio.format", "float32le")
	viper.SetDefault("audio.layout", "Stereo")
	viper.SetDefault("audio.latency", 0.0)
	viper.SetDefault("audio.tone", 440.0)

	viper.SetDefault("heartbeat.enabled", true)
	viper.SetDefault("heartbeat.listen", "127.0.0.1:8888")
	viper.SetDefault("heartbeat.freshness", 5*time.Second)
	viper.SetDefault("heartbeat.diagnosticinterval", time.Duration(0))
	viper.SetDefault("heartbeat.peerttl", time.Minute)

	viper.SetDefault("webserver.enabled", false)
	viper.SetDefault("webserver.listen", "127.0.0.1:8090")

	viper.SetDefault("telemetry.sentry_dsn", "")
}
