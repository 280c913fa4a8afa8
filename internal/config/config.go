package config

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	// Matchmaking: how long a queued user waits for a human opponent
	// before a scripted one is assigned.
	MatchTimeout time.Duration

	// Scripted opponents answer after a randomized delay in this range.
	BotDelayMin time.Duration
	BotDelayMax time.Duration

	// Gap between the winning_move highlight and the game_over payload.
	WinRevealDelay time.Duration

	// Gap between the room-context message and the full game snapshot
	// sent to a reconnecting client.
	ReconnectSnapshotDelay time.Duration

	// Window during which repeat reconnection snapshots are suppressed.
	ReconnectDebounce time.Duration

	// Active games with no move for this long are expired.
	ExpireAfter   time.Duration
	SweepInterval time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() Config {
	return Config{
		HTTPAddr:               getenv("HTTP_ADDR", ":"+getenv("PORT", "8080")),
		DatabaseURL:            getenv("DATABASE_URL", ""),
		MatchTimeout:           getenvDur("MATCH_TIMEOUT", 30*time.Second),
		BotDelayMin:            getenvDur("BOT_DELAY_MIN", 800*time.Millisecond),
		BotDelayMax:            getenvDur("BOT_DELAY_MAX", 2200*time.Millisecond),
		WinRevealDelay:         getenvDur("WIN_REVEAL_DELAY", 2*time.Second),
		ReconnectSnapshotDelay: getenvDur("RECONNECT_SNAPSHOT_DELAY", 500*time.Millisecond),
		ReconnectDebounce:      getenvDur("RECONNECT_DEBOUNCE", 3*time.Second),
		ExpireAfter:            getenvDur("GAME_EXPIRE_AFTER", 10*time.Minute),
		SweepInterval:          getenvDur("GAME_SWEEP_INTERVAL", 2*time.Minute),
	}
}
