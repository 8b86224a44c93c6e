package config

import (
	"fmt"
	"strings"

	internal "github.com/filekit/dupescan/dupescan"
	"github.com/filekit/dupescan/dupescan/hasher"

	"github.com/spf13/viper"
)

const (
	MinChunkSize       = 4096
	MinParallelWorkers = 1
	MaxParallelWorkers = 16
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

// ScanConfig stores the hashing and worker settings used by the
// detection pipeline.
type ScanConfig struct {
	// ChunkSize is the read size in bytes for partial and full hashing.
	// Must be a power of two and at least MinChunkSize.
	ChunkSize int `mapstructure:"chunkSize"`
	// HashAlgorithm selects the fingerprint algorithm (sha256, sha512,
	// sha1, md5, xxhash64).
	HashAlgorithm string `mapstructure:"hashAlgorithm"`
	// ParallelWorkers bounds the hashing worker pool (1..16).
	ParallelWorkers int `mapstructure:"parallelWorkers"`
	// StorageType is a hint for the underlying storage ("ssd" or "hdd").
	StorageType string `mapstructure:"storageType"`
}

// CleanupConfig stores settings for the move-to-backup deletion service.
type CleanupConfig struct {
	BackupBaseDir string `mapstructure:"backupBaseDir"`
}

var AppConfig Config

// DefaultScanConfig returns a ScanConfig populated with the application
// defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		ChunkSize:       internal.DefaultChunkSize,
		HashAlgorithm:   internal.DefaultHashAlgorithm,
		ParallelWorkers: internal.DefaultParallelWorkers,
		StorageType:     internal.DefaultStorageType,
	}
}

// Validate checks the invariants the detection pipeline assumes hold.
func (sc ScanConfig) Validate() error {
	if !isPowerOfTwo(sc.ChunkSize) {
		return fmt.Errorf("scan.chunkSize must be a power of 2, got %d", sc.ChunkSize)
	}
	if sc.ChunkSize < MinChunkSize {
		return fmt.Errorf("scan.chunkSize must be at least %d, got %d", MinChunkSize, sc.ChunkSize)
	}
	if sc.ParallelWorkers < MinParallelWorkers || sc.ParallelWorkers > MaxParallelWorkers {
		return fmt.Errorf("scan.parallelWorkers must be between %d and %d, got %d",
			MinParallelWorkers, MaxParallelWorkers, sc.ParallelWorkers)
	}
	if _, err := hasher.ParseAlgorithm(sc.HashAlgorithm); err != nil {
		return fmt.Errorf("scan.hashAlgorithm: %w", err)
	}
	if sc.StorageType != "ssd" && sc.StorageType != "hdd" {
		return fmt.Errorf("scan.storageType must be \"ssd\" or \"hdd\", got %q", sc.StorageType)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("scan.chunkSize", internal.DefaultChunkSize)
	viper.SetDefault("scan.hashAlgorithm", internal.DefaultHashAlgorithm)
	viper.SetDefault("scan.parallelWorkers", internal.DefaultParallelWorkers)
	viper.SetDefault("scan.storageType", internal.DefaultStorageType)
	viper.SetDefault("cleanup.backupBaseDir", ".")

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // scan.chunkSize becomes SCAN_CHUNKSIZE

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := AppConfig.Scan.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig, nil
}
