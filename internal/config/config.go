package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the loader.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Batch     BatchConfig     `yaml:"batch"`
	Iteration IterationConfig `yaml:"iteration"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a lib/pq keyword connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}

// ArchiveConfig holds the location of the archive working tree and the
// per-type jsonlines file names inside it.
type ArchiveConfig struct {
	Dir           string `yaml:"dir"`
	CharacterFile string `yaml:"character_file"`
	PersonFile    string `yaml:"person_file"`
	SubjectFile   string `yaml:"subject_file"`
}

// FilePath returns the path of the jsonlines file for a record type name,
// or an error for an unknown type.
func (c ArchiveConfig) FilePath(recordType string) (string, error) {
	var name string
	switch recordType {
	case "character":
		name = c.CharacterFile
	case "person":
		name = c.PersonFile
	case "subject":
		name = c.SubjectFile
	default:
		return "", fmt.Errorf("no archive file configured for type %q", recordType)
	}
	return filepath.Join(c.Dir, name), nil
}

// FilePaths returns the paths of all three jsonlines files.
func (c ArchiveConfig) FilePaths() []string {
	return []string{
		filepath.Join(c.Dir, c.CharacterFile),
		filepath.Join(c.Dir, c.PersonFile),
		filepath.Join(c.Dir, c.SubjectFile),
	}
}

// BatchConfig holds upsert batching parameters.
type BatchConfig struct {
	Size int `yaml:"size"`
}

// IterationConfig controls snapshot-iteration (backfill) mode. A non-empty
// StartDate switches the default invocation from single-pass to walking
// every archive revision from that dump date to the newest.
type IterationConfig struct {
	StartDate string `yaml:"start_date"`
}

// Load reads and parses the configuration file. A missing file is not an
// error; defaults and environment variables are enough to run.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Set defaults
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "bangumi"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "bangumiArchive"
	}
	if cfg.Archive.CharacterFile == "" {
		cfg.Archive.CharacterFile = "character.jsonlines"
	}
	if cfg.Archive.PersonFile == "" {
		cfg.Archive.PersonFile = "person.jsonlines"
	}
	if cfg.Archive.SubjectFile == "" {
		cfg.Archive.SubjectFile = "subject.jsonlines"
	}
	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 1000
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so local credentials can live in .env and real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse DB_PORT: %w", err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.Archive.Dir = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse BATCH_SIZE: %w", err)
		}
		cfg.Batch.Size = size
	}
	if v := os.Getenv("DATA_START_DATE"); v != "" {
		cfg.Iteration.StartDate = v
	}

	return cfg, nil
}
