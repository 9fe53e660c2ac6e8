package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing api url",
			env:     map[string]string{"ONEBOT_WS_URL": "ws://localhost:3001"},
			wantErr: true,
		},
		{
			name:    "missing ws url",
			env:     map[string]string{"ONEBOT_API_URL": "http://localhost:3000"},
			wantErr: true,
		},
		{
			name: "urls only, defaults applied",
			env: map[string]string{
				"ONEBOT_API_URL": "http://localhost:3000",
				"ONEBOT_WS_URL":  "ws://localhost:3001",
			},
			want: &Config{
				OneBotAPIURL: "http://localhost:3000",
				OneBotWSURL:  "ws://localhost:3001",
				DatabasePath: "./data/weatherbot.db",
				IconCacheDir: "./data/icons",
				NMCBaseURL:   "https://www.nmc.cn",
				LogLevel:     "info",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"ONEBOT_API_URL":      "http://napcat:3000",
				"ONEBOT_WS_URL":       "ws://napcat:3001",
				"ONEBOT_ACCESS_TOKEN": "secret",
				"DATABASE_PATH":       "/var/lib/weatherbot/bot.db",
				"ICON_CACHE_DIR":      "/var/cache/weatherbot/icons",
				"NMC_BASE_URL":        "https://mirror.test",
				"LOG_LEVEL":           "debug",
			},
			want: &Config{
				OneBotAPIURL: "http://napcat:3000",
				OneBotWSURL:  "ws://napcat:3001",
				OneBotToken:  "secret",
				DatabasePath: "/var/lib/weatherbot/bot.db",
				IconCacheDir: "/var/cache/weatherbot/icons",
				NMCBaseURL:   "https://mirror.test",
				LogLevel:     "debug",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				"ONEBOT_API_URL", "ONEBOT_WS_URL", "ONEBOT_ACCESS_TOKEN",
				"DATABASE_PATH", "ICON_CACHE_DIR", "NMC_BASE_URL", "LOG_LEVEL",
			} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
