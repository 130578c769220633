package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultDBPath = "files.db"

	DefaultSessionName     = "session"
	DefaultChannelUsername = "GBEXTREME"
	DefaultPollTimeout     = 30 * time.Second

	DefaultHTTPHost            = "0.0.0.0"
	DefaultHTTPPort            = 8000
	DefaultBaseURL             = "http://localhost:8000"
	DefaultHTTPReadTimeout     = 15 * time.Second
	DefaultHTTPWriteTimeout    = 30 * time.Second
	DefaultHTTPShutdownTimeout = 10 * time.Second

	DefaultDownloadsDir     = "downloads"
	DefaultMaxFileSize      = 20 << 20 // getFile limit of the public Bot API
	DefaultMaxConcurrent    = 4
	DefaultDownloadTimeout  = 10 * time.Minute
	DefaultProgressInterval = 2 * time.Second

	DefaultUploadEndpoint  = "https://uploda.sh/api/upload"
	DefaultUploadTimeout   = 10 * time.Minute
	DefaultUploadAttempts  = 3
	DefaultBreakerFailures = 5

	DefaultLinkTTL = 24 * time.Hour
)

// Scheduled task names.
const (
	TaskLinkCleanup      = "link_cleanup"
	TaskDownloadsCleanup = "downloads_cleanup"
	TaskSQLMaintenance   = "sql_maintenance"
)

// DefaultMessages holds the stock texts.
var DefaultMessages = MessagesConfig{
	Welcome: "👋 Welcome {name}!\n\n" +
		"To use this bot, please join @{channel}.\n" +
		"After joining, tap <b>✅ I Have Joined</b>.",
	JoinButton:   "📢 Join Channel",
	JoinedButton: "✅ I Have Joined",
	Joined:       "✅ Great! Now send me any file and I’ll create a Uploda.sh link for you. 🚀",
	JoinedAnswer: "You may now send files.",
	Help: "📎 Send me a document, video, audio or photo and I will reply with a Uploda.sh download link.\n\n" +
		"Files up to {max_size} are supported.",
	NotAllowed:     "⚠️ Join @{channel} to use this bot.",
	Preparing:      "⏳ Preparing...",
	Downloading:    "⏬ Downloading...\n{bar}\n{current} / {total}",
	DownloadFailed: "❌ Download failed: {error}",
	Uploading:      "📤 Uploading to Uploda.sh...",
	UploadFailed:   "❌ Upload failed. Please try again later.",
	TooLarge:       "❌ This file is too large ({size}). The maximum supported size is {max_size}.",
	ProcessingFailed: "⚠️ Failed to process the file.\n" +
		"Error: {error}",
	Completed: "✅ <b>Upload Completed!</b>\n\n" +
		"📁 <b>File Name:</b> <code>{name}</code>\n" +
		"📦 <b>File Size:</b> {size} MB\n\n" +
		"🔗 <b>File Link:</b> {link}\n" +
		"🔗 <b>File Link (Easy Copy):</b> {link}\n" +
		"🔗 <b>Short Link:</b> {short_link}\n\n" +
		"📮 Join @{channel}",
	Notify: "📥 <b>New Upload</b>\n\n" +
		"👤 <b>User:</b> {user} ({username})\n" +
		"🆔 <b>User ID:</b> <code>{user_id}</code>\n\n" +
		"📁 <b>File:</b> <code>{name}</code>\n" +
		"📦 <b>Size:</b> {size} MB\n" +
		"🔗 <b>Link:</b> {link}\n" +
		"⏰ <i>{time}</i>",
	Root: "Telegram File → Uploda.sh bot is running!",
}

// DefaultTasks is the stock scheduler table.
var DefaultTasks = map[string]TaskConfig{
	TaskLinkCleanup:      {Enabled: true, Schedule: "0 0 * * * *"},
	TaskDownloadsCleanup: {Enabled: true, Schedule: "0 */30 * * * *"},
	TaskSQLMaintenance:   {Enabled: true, Schedule: "0 0 4 * * *"},
}

// setDefaults registers a default for every key so that AutomaticEnv can see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.server_url", "")
	v.SetDefault("telegram.api_id", 0)
	v.SetDefault("telegram.api_hash", "")
	v.SetDefault("telegram.session_name", DefaultSessionName)
	v.SetDefault("telegram.channel_username", DefaultChannelUsername)
	v.SetDefault("telegram.notify_channel_id", 0)
	v.SetDefault("telegram.allowed_user_ids", []int64{})
	v.SetDefault("telegram.poll_timeout", DefaultPollTimeout)

	v.SetDefault("http.host", DefaultHTTPHost)
	v.SetDefault("http.port", DefaultHTTPPort)
	v.SetDefault("http.base_url", DefaultBaseURL)
	v.SetDefault("http.read_timeout", DefaultHTTPReadTimeout)
	v.SetDefault("http.write_timeout", DefaultHTTPWriteTimeout)
	v.SetDefault("http.shutdown_timeout", DefaultHTTPShutdownTimeout)

	v.SetDefault("transfer.downloads_dir", DefaultDownloadsDir)
	v.SetDefault("transfer.max_file_size", DefaultMaxFileSize)
	v.SetDefault("transfer.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("transfer.download_timeout", DefaultDownloadTimeout)
	v.SetDefault("transfer.progress_interval", DefaultProgressInterval)

	v.SetDefault("uploader.endpoint", DefaultUploadEndpoint)
	v.SetDefault("uploader.timeout", DefaultUploadTimeout)
	v.SetDefault("uploader.max_attempts", DefaultUploadAttempts)
	v.SetDefault("uploader.breaker_failures", DefaultBreakerFailures)

	v.SetDefault("links.ttl", DefaultLinkTTL)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.join_button", DefaultMessages.JoinButton)
	v.SetDefault("messages.joined_button", DefaultMessages.JoinedButton)
	v.SetDefault("messages.joined", DefaultMessages.Joined)
	v.SetDefault("messages.joined_answer", DefaultMessages.JoinedAnswer)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.not_allowed", DefaultMessages.NotAllowed)
	v.SetDefault("messages.preparing", DefaultMessages.Preparing)
	v.SetDefault("messages.downloading", DefaultMessages.Downloading)
	v.SetDefault("messages.download_failed", DefaultMessages.DownloadFailed)
	v.SetDefault("messages.uploading", DefaultMessages.Uploading)
	v.SetDefault("messages.upload_failed", DefaultMessages.UploadFailed)
	v.SetDefault("messages.too_large", DefaultMessages.TooLarge)
	v.SetDefault("messages.processing_failed", DefaultMessages.ProcessingFailed)
	v.SetDefault("messages.completed", DefaultMessages.Completed)
	v.SetDefault("messages.notify", DefaultMessages.Notify)
	v.SetDefault("messages.root", DefaultMessages.Root)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}
