package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Ledger modes
const (
	LedgerOff      = "off"
	LedgerMemory   = "memory"
	LedgerEthereum = "ethereum"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	AdminKeySalt   string
	VoterCommitKey string
	RequestTimeout time.Duration

	Ledger LedgerConfig
	Anchor AnchorConfig

	ReconcileSchedule string
}

type LedgerConfig struct {
	Mode           string
	RPCURL         string
	ChainID        uint64
	AnchorContract string
	SignerKey      string
}

type AnchorConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	StaleAfter   time.Duration
}

// ParseFlags validates flags and fills the rest from the environment.
// A .env file in the working directory is loaded first if present; real
// environment variables win over it.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	fs := flag.NewFlagSet("quickly-elect", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.VoterCommitKey, "commit-salt", "", "Voter commitment salt (prefer env)")

	fs.StringVar(&cfg.Ledger.Mode, "ledger", "", "Ledger mode (off, memory or ethereum)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envString("DATABASE_TYPE", "sqlite")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.VoterCommitKey == "" {
		cfg.VoterCommitKey = os.Getenv("VOTER_COMMIT_SALT")
	}
	if cfg.VoterCommitKey == "" {
		return Config{}, errors.New("VOTER_COMMIT_SALT required")
	}

	var err error
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	if err := parseLedger(&cfg.Ledger); err != nil {
		return Config{}, err
	}
	if err := parseAnchor(&cfg.Anchor); err != nil {
		return Config{}, err
	}

	cfg.ReconcileSchedule = envString("RECONCILE_SCHEDULE", "@every 10m")

	return cfg, nil
}

func parseLedger(lc *LedgerConfig) error {
	if lc.Mode == "" {
		lc.Mode = envString("LEDGER_MODE", LedgerMemory)
	}

	switch lc.Mode {
	case LedgerOff, LedgerMemory:
		return nil
	case LedgerEthereum:
	default:
		return fmt.Errorf("invalid ledger mode %q", lc.Mode)
	}

	lc.RPCURL = os.Getenv("LEDGER_RPC_URL")
	lc.AnchorContract = os.Getenv("LEDGER_ANCHOR_CONTRACT")
	lc.SignerKey = os.Getenv("LEDGER_SIGNER_KEY")
	if lc.RPCURL == "" || lc.AnchorContract == "" || lc.SignerKey == "" {
		return errors.New("LEDGER_RPC_URL, LEDGER_ANCHOR_CONTRACT and LEDGER_SIGNER_KEY required for ethereum ledger")
	}

	chainID, err := envInt("LEDGER_CHAIN_ID", 0)
	if err != nil {
		return err
	}
	lc.ChainID = uint64(chainID)

	return nil
}

func parseAnchor(ac *AnchorConfig) error {
	var err error
	if ac.Workers, err = envInt("ANCHOR_WORKERS", 4); err != nil {
		return err
	}
	if ac.QueueSize, err = envInt("ANCHOR_QUEUE_SIZE", 1024); err != nil {
		return err
	}
	if ac.MaxAttempts, err = envInt("ANCHOR_MAX_ATTEMPTS", 5); err != nil {
		return err
	}
	if ac.InitialDelay, err = envDuration("ANCHOR_INITIAL_DELAY", 500*time.Millisecond); err != nil {
		return err
	}
	if ac.MaxDelay, err = envDuration("ANCHOR_MAX_DELAY", 30*time.Second); err != nil {
		return err
	}
	if ac.StaleAfter, err = envDuration("ANCHOR_STALE_AFTER", 5*time.Minute); err != nil {
		return err
	}

	if ac.Workers < 1 || ac.QueueSize < 1 || ac.MaxAttempts < 1 {
		return errors.New("ANCHOR_WORKERS, ANCHOR_QUEUE_SIZE and ANCHOR_MAX_ATTEMPTS must be positive")
	}
	if ac.InitialDelay <= 0 || ac.MaxDelay < ac.InitialDelay {
		return errors.New("ANCHOR_INITIAL_DELAY must be positive and not exceed ANCHOR_MAX_DELAY")
	}
	// A claim younger than one backoff sleep may still be in flight.
	if ac.StaleAfter <= ac.MaxDelay {
		return errors.New("ANCHOR_STALE_AFTER must exceed ANCHOR_MAX_DELAY")
	}

	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
