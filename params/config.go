package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Exchange holds the knobs the matching engine itself needs.
type Exchange struct {
	// CollateralDecimals sets MULT = 10^CollateralDecimals: the collateral
	// units a single winning share pays out on claim.
	CollateralDecimals int
	// AdminAddresses may create and resolve markets (hex-encoded, 0x-prefixed).
	AdminAddresses []string
}

// Server holds the HTTP/websocket listener config.
type Server struct {
	ListenAddr string
}

// Storage holds the journal/database paths for durability.
type Storage struct {
	DBPath      string
	JournalPath string
}

type Config struct {
	Exchange Exchange
	Server   Server
	Storage  Storage
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			CollateralDecimals: 18,
			AdminAddresses:     []string{},
		},
		Server: Server{
			ListenAddr: ":8080",
		},
		Storage: Storage{
			DBPath:      "./data/exchange.db",
			JournalPath: "./data/journal.log",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if decimals := os.Getenv("COLLATERAL_DECIMALS"); decimals != "" {
		if n, err := strconv.Atoi(decimals); err == nil {
			cfg.Exchange.CollateralDecimals = n
		}
	}

	if admins := os.Getenv("ADMIN_ADDRESSES"); admins != "" {
		cfg.Exchange.AdminAddresses = splitAndTrim(admins)
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}

	if journalPath := os.Getenv("JOURNAL_PATH"); journalPath != "" {
		cfg.Storage.JournalPath = journalPath
	}

	return cfg
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
