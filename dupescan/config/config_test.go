package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	viper.Reset()

	// Save original directory
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	// Create temporary directory for testing
	tempDir, err := os.MkdirTemp("", "dupescan-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory so LoadConfig("") resolves against it
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) writeConfig(content string) {
	path := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte(content), 0o644))
}

func (suite *ConfigTestSuite) TestLoadDefaultsWithoutConfigFile() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 65536, cfg.Scan.ChunkSize)
	assert.Equal(suite.T(), "xxhash64", cfg.Scan.HashAlgorithm)
	assert.Equal(suite.T(), 4, cfg.Scan.ParallelWorkers)
	assert.Equal(suite.T(), "ssd", cfg.Scan.StorageType)
	assert.Equal(suite.T(), ".", cfg.Cleanup.BackupBaseDir)
}

func (suite *ConfigTestSuite) TestLoadFromConfigFile() {
	suite.writeConfig(`
scan:
  chunkSize: 8192
  hashAlgorithm: sha256
  parallelWorkers: 8
  storageType: hdd
cleanup:
  backupBaseDir: /var/backups
`)

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 8192, cfg.Scan.ChunkSize)
	assert.Equal(suite.T(), "sha256", cfg.Scan.HashAlgorithm)
	assert.Equal(suite.T(), 8, cfg.Scan.ParallelWorkers)
	assert.Equal(suite.T(), "hdd", cfg.Scan.StorageType)
	assert.Equal(suite.T(), "/var/backups", cfg.Cleanup.BackupBaseDir)
}

func (suite *ConfigTestSuite) TestRejectsNonPowerOfTwoChunkSize() {
	suite.writeConfig("scan:\n  chunkSize: 1000\n")

	_, err := LoadConfig("")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "power of 2")
}

func (suite *ConfigTestSuite) TestRejectsTooSmallChunkSize() {
	suite.writeConfig("scan:\n  chunkSize: 2048\n")

	_, err := LoadConfig("")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "at least 4096")
}

func (suite *ConfigTestSuite) TestRejectsWorkersOutOfRange() {
	suite.writeConfig("scan:\n  parallelWorkers: 17\n")

	_, err := LoadConfig("")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "between 1 and 16")
}

func (suite *ConfigTestSuite) TestRejectsUnknownAlgorithm() {
	suite.writeConfig("scan:\n  hashAlgorithm: crc32\n")

	_, err := LoadConfig("")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "hashAlgorithm")
}

func (suite *ConfigTestSuite) TestRejectsUnknownStorageType() {
	suite.writeConfig("scan:\n  storageType: tape\n")

	_, err := LoadConfig("")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "storageType")
}

func TestScanConfigValidate(t *testing.T) {
	valid := DefaultScanConfig()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*ScanConfig)
	}{
		{"zero chunk size", func(sc *ScanConfig) { sc.ChunkSize = 0 }},
		{"negative chunk size", func(sc *ScanConfig) { sc.ChunkSize = -4096 }},
		{"non power of two", func(sc *ScanConfig) { sc.ChunkSize = 6000 }},
		{"below minimum", func(sc *ScanConfig) { sc.ChunkSize = 1024 }},
		{"zero workers", func(sc *ScanConfig) { sc.ParallelWorkers = 0 }},
		{"too many workers", func(sc *ScanConfig) { sc.ParallelWorkers = 17 }},
		{"unknown algorithm", func(sc *ScanConfig) { sc.HashAlgorithm = "adler32" }},
		{"unknown storage type", func(sc *ScanConfig) { sc.StorageType = "floppy" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := DefaultScanConfig()
			tt.mutate(&sc)
			assert.Error(t, sc.Validate())
		})
	}
}
