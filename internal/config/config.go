package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnMap declares how a backend's column names map onto the canonical
// record fields. The labeling sheets this service replaces disagreed on
// column naming (Image_ID vs Image_File, Pneumonia_Grading vs
// Pneumothorax_Grading), so every backend resolves its mapping once at
// store construction and the rest of the system only sees canonical names.
type ColumnMap struct {
	Key              string `yaml:"key"`
	GroundTruth      string `yaml:"ground_truth"`
	Grade            string `yaml:"grade"`
	Percentage       string `yaml:"percentage"`
	Labeled          string `yaml:"labeled"`
	PneumothoraxType string `yaml:"pneumothorax_type"`
}

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	// Condition selects the grading domain: "pneumonia" or "pneumothorax".
	Condition string `yaml:"condition"`

	Images struct {
		Dir        string   `yaml:"dir"`
		Extensions []string `yaml:"extensions"`
	} `yaml:"images"`

	Store struct {
		Backend string `yaml:"backend"` // "sqlite", "csv" or "remote"

		SQLite struct {
			Path    string    `yaml:"path"`
			Table   string    `yaml:"table"`
			Columns ColumnMap `yaml:"columns"`
		} `yaml:"sqlite"`

		CSV struct {
			Path    string    `yaml:"path"`
			Columns ColumnMap `yaml:"columns"`
		} `yaml:"csv"`

		Remote struct {
			BaseURL   string    `yaml:"base_url"`
			Repo      string    `yaml:"repo"`      // "owner/name"
			FilePath  string    `yaml:"file_path"` // path inside the repo
			Token     string    `yaml:"token"`
			LocalPath string    `yaml:"local_path"`
			Columns   ColumnMap `yaml:"columns"`
		} `yaml:"remote"`
	} `yaml:"store"`

	// SkipLabeled auto-skips already-graded records when a session starts.
	SkipLabeled bool `yaml:"skip_labeled"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8003"
	}

	if config.Condition == "" {
		config.Condition = "pneumonia"
	}

	if config.Images.Dir == "" {
		config.Images.Dir = "./Images"
	}

	if len(config.Images.Extensions) == 0 {
		config.Images.Extensions = []string{".jpeg", ".jpg", ".png"}
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "sqlite"
	}

	if config.Store.SQLite.Path == "" {
		config.Store.SQLite.Path = "./data/pneumonia_grading.db"
	}

	if config.Store.SQLite.Table == "" {
		config.Store.SQLite.Table = "pneumonia_grading"
	}

	if config.Store.CSV.Path == "" {
		config.Store.CSV.Path = "./data/grading.csv"
	}

	if config.Store.Remote.BaseURL == "" {
		config.Store.Remote.BaseURL = "https://api.github.com"
	}

	if config.Store.Remote.LocalPath == "" {
		config.Store.Remote.LocalPath = "./data/grading_remote.csv"
	}

	applyColumnDefaults(&config.Store.SQLite.Columns, sqliteColumnDefaults)
	csvDefaults := csvColumnDefaults(config.Condition)
	applyColumnDefaults(&config.Store.CSV.Columns, csvDefaults)
	applyColumnDefaults(&config.Store.Remote.Columns, csvDefaults)

	// Expand environment variables in the remote access token
	config.Store.Remote.Token = os.ExpandEnv(config.Store.Remote.Token)

	return config, nil
}

var sqliteColumnDefaults = ColumnMap{
	Key:              "image_id",
	GroundTruth:      "ground_truth",
	Grade:            "grading",
	Percentage:       "percentage_grade",
	Labeled:          "labeled",
	PneumothoraxType: "pneumothorax_type",
}

func csvColumnDefaults(condition string) ColumnMap {
	cols := ColumnMap{
		Key:         "Image_ID",
		GroundTruth: "Ground_Truth",
		Grade:       "Pneumonia_Grading",
		Percentage:  "Percentage of Grade",
		Labeled:     "Labeled",
	}
	if condition == "pneumothorax" {
		cols.GroundTruth = "Pneumothorax_Status"
		cols.Grade = "Pneumothorax_Grading"
		cols.Percentage = "Percentage"
		cols.PneumothoraxType = "Pneumothorax_Type"
	}
	return cols
}

func applyColumnDefaults(cols *ColumnMap, defaults ColumnMap) {
	if cols.Key == "" {
		cols.Key = defaults.Key
	}
	if cols.GroundTruth == "" {
		cols.GroundTruth = defaults.GroundTruth
	}
	if cols.Grade == "" {
		cols.Grade = defaults.Grade
	}
	if cols.Percentage == "" {
		cols.Percentage = defaults.Percentage
	}
	if cols.Labeled == "" {
		cols.Labeled = defaults.Labeled
	}
	if cols.PneumothoraxType == "" {
		cols.PneumothoraxType = defaults.PneumothoraxType
	}
}
