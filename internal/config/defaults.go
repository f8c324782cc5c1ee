package config

const (
	defaultDataDir                = "~/.local/share/clipsight"
	defaultLogDir                 = "~/.local/share/clipsight/logs"
	defaultAPIBind                = "127.0.0.1:8017"
	defaultMaxUploadMiB           = 2048
	defaultYtDlpBinary            = "yt-dlp"
	defaultDownloadTimeoutSeconds = 1800
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultSceneThreshold         = 0.4
	defaultMaxKeyframes           = 0
	defaultWhisperBinary          = "whisper"
	defaultWhisperModel           = "base"
	defaultWhisperLanguage        = "en"
	defaultWhisperTimeoutSeconds  = 3600
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMReferer             = "https://github.com/clipsight/clipsight"
	defaultLLMTitle               = "Clipsight Report"
	defaultLLMTimeoutSeconds      = 120
	defaultLLMMaxImages           = 16
	defaultNotifyRequestTimeout   = 10
	defaultEventBufferSize        = 64
	defaultShutdownTimeoutSeconds = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		API: API{
			CORSOrigins:   []string{"*"},
			MaxUploadMiB:  defaultMaxUploadMiB,
			RequestLogger: true,
		},
		Download: Download{
			YtDlpBinary:    defaultYtDlpBinary,
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Media: Media{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			SceneThreshold: defaultSceneThreshold,
			MaxKeyframes:   defaultMaxKeyframes,
		},
		Transcription: Transcription{
			WhisperBinary:  defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Language:       defaultWhisperLanguage,
			TimeoutSeconds: defaultWhisperTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxImages:      defaultLLMMaxImages,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobComplete:    true,
			Errors:         true,
		},
		Workflow: Workflow{
			EventBufferSize:        defaultEventBufferSize,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
