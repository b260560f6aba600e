package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Assist: AssistConfig{
			APIBase:        "http://localhost:8000",
			TimeoutSeconds: 30,
			HistoryLimit:   20,
		},
		Audio: AudioConfig{
			RecorderCommand: "arecord -f S16_LE -r 16000 -c 1 -t wav",
			PlayerCommand:   "mpg123 -q -",
			Playback:        true,
		},
		Archive: ArchiveConfig{
			Enabled:       true,
			DBPath:        "~/.fieldvoice/archive.db",
			RetentionDays: 365,
		},
		Guides: GuidesConfig{
			Dir: "~/.fieldvoice/guides",
		},
		WorkOrders: WorkOrdersConfig{},
	}
}
