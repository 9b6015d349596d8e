package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/slog"
	"github.com/joho/godotenv"
)

const confFilename = "mindvault.conf"

// ClientCfg carries everything NewClient needs.
type ClientCfg struct {
	AppCfg  *AppConfig  // consolidated app config
	Log     slog.Logger // application's logger
	Session *Session    // connected wallet session

	// Notifications tracks handlers for client events. If nil, the
	// client will initialize a new notification manager.
	Notifications *NotificationManager
}

// ConfigOverrides carries optional CLI/runtime overrides for config
// values. Non-empty fields win over the conf file.
type ConfigOverrides struct {
	RPCURL       string
	ContractAddr string
	KeyFile      string
	Origin       string
	DebugLevel   string
}

// AppConfig is the consolidated configuration used by the client app.
type AppConfig struct {
	// Absolute directory where the config/logs live.
	DataDir string

	RPCURL       string
	ContractAddr string
	KeyFile      string // path to a file holding the hex signing key
	Origin       string // origin used when building invite links
	DebugLevel   string

	PollInterval   time.Duration
	LookbackBlocks uint64
}

// LoadAppConfig loads the client configuration from disk and applies
// overrides. If datadir is empty, the default application data dir for
// "mindvault" is used. A missing conf file is not an error; defaults
// apply.
func LoadAppConfig(datadir string, ov ConfigOverrides) (*AppConfig, error) {
	if datadir == "" {
		datadir = dcrutil.AppDataDir("mindvault", false)
	}

	cfg := &AppConfig{
		DataDir:        datadir,
		RPCURL:         "http://127.0.0.1:8545",
		Origin:         "https://mindvault.games",
		DebugLevel:     "info",
		PollInterval:   5 * time.Second,
		LookbackBlocks: 10,
	}

	confPath := filepath.Join(datadir, confFilename)
	if _, err := os.Stat(confPath); err == nil {
		vals, err := godotenv.Read(confPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if v := vals["rpcurl"]; v != "" {
			cfg.RPCURL = v
		}
		if v := vals["contractaddr"]; v != "" {
			cfg.ContractAddr = v
		}
		if v := vals["keyfile"]; v != "" {
			cfg.KeyFile = v
		}
		if v := vals["origin"]; v != "" {
			cfg.Origin = v
		}
		if v := vals["debuglevel"]; v != "" {
			cfg.DebugLevel = v
		}
		if v := vals["pollintervalms"]; v != "" {
			ms, err := strconv.Atoi(v)
			if err != nil || ms <= 0 {
				return nil, fmt.Errorf("bad pollintervalms %q", v)
			}
			cfg.PollInterval = time.Duration(ms) * time.Millisecond
		}
		if v := vals["lookbackblocks"]; v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad lookbackblocks %q", v)
			}
			cfg.LookbackBlocks = n
		}
	}

	// Overrides win.
	if ov.RPCURL != "" {
		cfg.RPCURL = ov.RPCURL
	}
	if ov.ContractAddr != "" {
		cfg.ContractAddr = ov.ContractAddr
	}
	if ov.KeyFile != "" {
		cfg.KeyFile = ov.KeyFile
	}
	if ov.Origin != "" {
		cfg.Origin = ov.Origin
	}
	if ov.DebugLevel != "" {
		cfg.DebugLevel = ov.DebugLevel
	}

	if cfg.ContractAddr == "" {
		return nil, fmt.Errorf("missing contractaddr in %s", confPath)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = filepath.Join(datadir, "key.hex")
	}
	return cfg, nil
}

// ReadKeyHex reads the hex signing key from the configured key file.
func (cfg *AppConfig) ReadKeyHex() (string, error) {
	b, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(b)), "0x")), nil
}
