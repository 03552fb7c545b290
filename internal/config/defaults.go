package config

const (
	defaultWorkDir            = "~/.local/share/panelcast/work"
	defaultOutputDir          = "~/.local/share/panelcast/output"
	defaultAudioDir           = "~/.local/share/panelcast/audio"
	defaultStateDir           = "~/.local/share/panelcast/state"
	defaultLogDir             = "~/.local/share/panelcast/logs"
	defaultStoreBackend       = "redis"
	defaultRedisHost          = "127.0.0.1"
	defaultRedisPort          = "6379"
	defaultRedisKeyPrefix     = "panelcast:"
	defaultRenderConcurrency  = 3
	defaultFrameHeight        = 1080
	defaultFrameRate          = 24
	defaultEncoder            = "auto"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultDownloadTimeout    = 60
	defaultDownloadRate       = 4.0
	defaultDownloadBurst      = 2
	defaultUserAgent          = "panelcast/dev"
	defaultVoiceTimeout       = 120
	defaultDequeueTimeout     = 5
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMetricsBind        = "127.0.0.1:9464"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			AudioDir:  defaultAudioDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Redis: Redis{
			KeyPrefix: defaultRedisKeyPrefix,
		},
		Render: Render{
			Concurrency:   defaultRenderConcurrency,
			FrameHeight:   defaultFrameHeight,
			FrameRate:     defaultFrameRate,
			Encoder:       defaultEncoder,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Download: Download{
			TimeoutSeconds:    defaultDownloadTimeout,
			RequestsPerSecond: defaultDownloadRate,
			Burst:             defaultDownloadBurst,
			UserAgent:         defaultUserAgent,
		},
		Voice: Voice{
			TimeoutSeconds: defaultVoiceTimeout,
		},
		Workflow: Workflow{
			DequeueTimeout:     defaultDequeueTimeout,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
	}
}
