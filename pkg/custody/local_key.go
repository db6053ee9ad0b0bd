// Package custody provides the local-key signing capability: incoming payments are claimed into a
// wallet built from a private key held by this process, with its own SQLite storage.
package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	peerpaydefs "github.com/bsv-blockchain/go-peerpay/pkg/defs"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/peerpay"
	sdk "github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/defs"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/monitor"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/services"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/storage"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/wdk"
)

const storageName = "PeerPay Custody Wallet"

var (
	// ErrMissingPrivateKey is returned when no private key is configured.
	ErrMissingPrivateKey = errors.New("private key must be provided for local key custody")

	// ErrClosed is returned when the custody wallet is used after Close.
	ErrClosed = errors.New("local key custody closed")
)

type Config struct {
	PrivateKeyHex string
	// Network defaults to mainnet.
	Network peerpaydefs.BSVNetwork
	// DBPath is the SQLite file of the wallet storage. Defaults to ~/.peerpay/wallet-<identity>-<network>.sqlite.
	DBPath string
	// Monitor starts the wallet monitor daemon, which tracks and rebroadcasts transactions.
	Monitor bool
	Logger  *slog.Logger
}

var _ peerpay.SigningCapability = (*LocalKey)(nil)

// LocalKey is a signing capability backed by a wallet-toolbox wallet of a locally held key.
// The wallet is built on first use.
type LocalKey struct {
	privateKeyHex string
	identityKey   string
	network       defs.BSVNetwork
	dbPath        string
	withMonitor   bool
	logger        *slog.Logger

	mu     sync.Mutex
	wallet *wallet.Wallet
	daemon *monitor.Daemon
	cancel context.CancelFunc
	closed bool
}

// NewLocalKey validates the configuration. No storage is touched until the wallet is first needed.
func NewLocalKey(cfg Config) (*LocalKey, error) {
	if cfg.PrivateKeyHex == "" {
		return nil, ErrMissingPrivateKey
	}

	identityKey, err := wdk.IdentityKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	network := defs.NetworkMainnet
	if cfg.Network != "" {
		network, err = defs.ParseBSVNetworkStr(string(cfg.Network))
		if err != nil {
			return nil, fmt.Errorf("invalid network: %w", err)
		}
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".peerpay", fmt.Sprintf("wallet-%s-%s.sqlite", identityKey, network))
	}

	return &LocalKey{
		privateKeyHex: cfg.PrivateKeyHex,
		identityKey:   identityKey,
		network:       network,
		dbPath:        dbPath,
		withMonitor:   cfg.Monitor,
		logger:        logging.Child(cfg.Logger, "LocalKeyCustody"),
	}, nil
}

func (k *LocalKey) Kind() peerpay.SigningKind {
	return peerpay.SigningKindLocalKey
}

// IdentityKey returns the identity key (DER hex) of the custody wallet.
func (k *LocalKey) IdentityKey() string {
	return k.identityKey
}

// DBPath returns the SQLite file backing the custody wallet.
func (k *LocalKey) DBPath() string {
	return k.dbPath
}

// ClaimingWallet returns the custody wallet, building it on the first call.
func (k *LocalKey) ClaimingWallet(ctx context.Context) (sdk.Interface, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if k.wallet != nil {
		return k.wallet, nil
	}

	if err := k.open(ctx); err != nil {
		return nil, err
	}
	return k.wallet, nil
}

// Close stops the monitor and releases the wallet storage.
func (k *LocalKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	if k.daemon != nil {
		_ = k.daemon.Stop()
		k.daemon = nil
	}
	if k.wallet != nil {
		k.wallet.Close()
		k.wallet = nil
	}
	if k.cancel != nil {
		k.cancel()
	}

	k.logger.Info("Custody wallet closed")
	return nil
}

// open must be called with mu held.
func (k *LocalKey) open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(k.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// background work outlives the call that triggered it
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	activeServices := services.New(k.logger, defs.DefaultServicesConfig(k.network))

	dbConfig := defs.DefaultDBConfig()
	dbConfig.Engine = defs.DBTypeSQLite
	dbConfig.SQLite.ConnectionString = k.dbPath

	activeStorage, err := storage.NewGORMProvider(k.network, activeServices,
		storage.WithDBConfig(dbConfig),
		storage.WithFeeModel(defs.DefaultFeeModel()),
		storage.WithCommission(defs.DefaultCommission()),
		storage.WithLogger(k.logger),
		storage.WithBackgroundBroadcasterContext(bgCtx),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create storage provider: %w", err)
	}

	if _, err = activeStorage.Migrate(ctx, storageName, k.identityKey); err != nil {
		cancel()
		return fmt.Errorf("failed to migrate storage: %w", err)
	}

	w, err := wallet.New(k.network, k.privateKeyHex, activeStorage,
		wallet.WithLogger(k.logger),
		wallet.WithServices(activeServices),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	if k.withMonitor {
		monitorCfg := defs.DefaultMonitorConfig()
		daemon, err := monitor.NewDaemonWithGORMLocker(bgCtx, k.logger, activeStorage, activeStorage.Database.DB)
		if err != nil {
			k.logger.Warn("Failed to create monitor daemon", logging.Error(err))
		} else if err := daemon.Start(monitorCfg.Tasks.EnabledTasks()); err != nil {
			k.logger.Warn("Failed to start monitor daemon", logging.Error(err))
		} else {
			k.daemon = daemon
		}
	}

	k.wallet = w
	k.cancel = cancel
	k.logger.Info("Custody wallet opened", slog.String("network", string(k.network)), slog.String("db", k.dbPath))
	return nil
}
