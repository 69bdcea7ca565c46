package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	// Data layout
	DataDir         string `mapstructure:"data_dir" yaml:"data_dir"`
	SourcesFile     string `mapstructure:"sources_file" yaml:"sources_file"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir"`
	ProcessedSuffix string `mapstructure:"processed_suffix" yaml:"processed_suffix"`

	// Pipeline
	TargetColumn    string  `mapstructure:"target_column" yaml:"target_column"`
	ZScoreThreshold float64 `mapstructure:"z_score_threshold" yaml:"z_score_threshold" validate:"gt=0"`
	OutlierMode     string  `mapstructure:"outlier_mode" yaml:"outlier_mode" validate:"oneof=sequential simultaneous"`
	RandomState     int64   `mapstructure:"random_state" yaml:"random_state"`
	BalanceTrain    bool    `mapstructure:"balance_train" yaml:"balance_train"`
	WriteParquet    bool    `mapstructure:"write_parquet" yaml:"write_parquet"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=text console json"`

	// Optional persistence store
	StoreDriver      string `mapstructure:"store_driver" yaml:"store_driver" validate:"oneof=sqlite postgres"`
	StoreDSN         string `mapstructure:"store_dsn" yaml:"store_dsn"`
	StoreTablePrefix string `mapstructure:"store_table_prefix" yaml:"store_table_prefix"`

	// Modelling defaults
	Folds           int     `mapstructure:"folds" yaml:"folds" validate:"min=2"`
	GBTEstimators   int     `mapstructure:"gbt_n_estimators" yaml:"gbt_n_estimators" validate:"min=1"`
	GBTLearningRate float64 `mapstructure:"gbt_learning_rate" yaml:"gbt_learning_rate" validate:"gt=0"`
	GBTMaxDepth     int     `mapstructure:"gbt_max_depth" yaml:"gbt_max_depth" validate:"min=1"`
	GBTSubsample    float64 `mapstructure:"gbt_subsample" yaml:"gbt_subsample" validate:"gt=0,lte=1"`
	GBTRandomState  int64   `mapstructure:"gbt_random_state" yaml:"gbt_random_state"`
	KNNNeighbors    int     `mapstructure:"knn_neighbors" yaml:"knn_neighbors" validate:"min=1"`
	KNNWeights      string  `mapstructure:"knn_weights" yaml:"knn_weights" validate:"oneof=uniform distance"`
	KNNP            float64 `mapstructure:"knn_p" yaml:"knn_p" validate:"gt=0"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "sources_file", "output_dir", "processed_suffix",
	"target_column", "z_score_threshold", "outlier_mode", "random_state", "balance_train", "write_parquet",
	"log_level", "log_format",
	"store_driver", "store_dsn", "store_table_prefix",
	"folds", "gbt_n_estimators", "gbt_learning_rate", "gbt_max_depth", "gbt_subsample", "gbt_random_state",
	"knn_neighbors", "knn_weights", "knn_p",
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pdspeech"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pdspeech/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("sources_file", "")
	v.SetDefault("output_dir", "train_and_test_sets")
	v.SetDefault("processed_suffix", "_processed")
	v.SetDefault("target_column", "status")
	v.SetDefault("z_score_threshold", 3.0)
	v.SetDefault("outlier_mode", "sequential")
	v.SetDefault("random_state", 0)
	v.SetDefault("balance_train", false)
	v.SetDefault("write_parquet", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("store_driver", "sqlite")
	v.SetDefault("store_dsn", "")
	v.SetDefault("store_table_prefix", "")
	// Modelling defaults
	v.SetDefault("folds", 5)
	v.SetDefault("gbt_n_estimators", 15)
	v.SetDefault("gbt_learning_rate", 0.1)
	v.SetDefault("gbt_max_depth", 6)
	v.SetDefault("gbt_subsample", 0.6)
	v.SetDefault("gbt_random_state", 13)
	v.SetDefault("knn_neighbors", 2)
	v.SetDefault("knn_weights", "distance")
	v.SetDefault("knn_p", 0.5)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PDSPEECH")
	v.AutomaticEnv()
	setDefaults(v)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file is fine, a malformed one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	dd, err := utils.ExpandHome(c.DataDir)
	if err != nil {
		return nil, err
	}
	c.DataDir = dd
	if c.StoreDSN == "" && c.StoreDriver == "sqlite" {
		c.StoreDSN = defaultSQLiteDSN(c.DataDir)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func defaultSQLiteDSN(dataDir string) string { return filepath.Join(dataDir, "pdspeech.db") }

// SetDataDir moves the data directory. A sqlite DSN that was derived from the
// old directory follows it.
func (c *Global) SetDataDir(dir string) {
	if c.StoreDriver == "sqlite" && c.StoreDSN == defaultSQLiteDSN(c.DataDir) {
		c.StoreDSN = defaultSQLiteDSN(dir)
	}
	c.DataDir = dir
}

// OutputPath returns <data_dir>/<output_dir>, or output_dir itself when it is absolute.
func (c *Global) OutputPath() string {
	if filepath.IsAbs(c.OutputDir) {
		return c.OutputDir
	}
	return filepath.Join(c.DataDir, c.OutputDir)
}

var validate = validator.New()

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s=%v (%s %s)", keyFor(fe.StructField()), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func keyFor(field string) string {
	if f, ok := reflect.TypeOf(Global{}).FieldByName(field); ok {
		return f.Tag.Get("mapstructure")
	}
	return field
}

// Set parses val into the field named by key and validates the result.
// On error c is left unchanged.
func Set(c *Global, key, val string) error {
	next := *c
	rv := reflect.ValueOf(&next).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).Tag.Get("mapstructure") != key {
			continue
		}
		f := rv.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(val)
		case reflect.Bool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %v", key, val)
			}
			f.SetBool(b)
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			f.SetInt(n)
		case reflect.Float64:
			x, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %v", key, val)
			}
			f.SetFloat(x)
		default:
			return fmt.Errorf("unsupported type for %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		*c = next
		return nil
	}
	return fmt.Errorf("unknown key: %s", key)
}

// Get returns the value of key formatted for display.
func Get(c *Global, key string) (string, bool) {
	rv := reflect.ValueOf(c).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).Tag.Get("mapstructure") == key {
			return fmt.Sprint(rv.Field(i).Interface()), true
		}
	}
	return "", false
}
