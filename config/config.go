// Copyright 2024 courserec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/courserec/courserec/model"
)

// Config is the configuration for the engine.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// DatabaseConfig is the configuration of the marketplace data store.
type DatabaseConfig struct {
	// DataStore is the DSN of the data store: mongodb:// or memory://.
	DataStore string `mapstructure:"data_store" validate:"required"`
}

// ModelConfig holds the snapshot location and hyper-parameters of the
// matrix factorization model.
type ModelConfig struct {
	Path        string  `mapstructure:"path" validate:"required"` // snapshot directory
	NFactors    int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gt=0"`
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
	InitMean    float64 `mapstructure:"init_mean"`
	InitStdDev  float64 `mapstructure:"init_std" validate:"gt=0"`
	RandomState int64   `mapstructure:"random_state"`
	Verbose     int     `mapstructure:"verbose" validate:"gt=0"`
}

// RecommendConfig is the configuration of the serving layer.
type RecommendConfig struct {
	TopK      int           `mapstructure:"top_k" validate:"gt=0"`
	FitPeriod time.Duration `mapstructure:"fit_period" validate:"gt=0"`
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "memory://",
		},
		Model: ModelConfig{
			Path:        "model_cache",
			NFactors:    50,
			NEpochs:     600,
			Lr:          0.1,
			Reg:         1.0,
			InitMean:    0,
			InitStdDev:  0.1,
			RandomState: 0,
			Verbose:     20,
		},
		Recommend: RecommendConfig{
			TopK:      10,
			FitPeriod: 24 * time.Hour,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	// [model]
	viper.SetDefault("model.path", defaultConfig.Model.Path)
	viper.SetDefault("model.n_factors", defaultConfig.Model.NFactors)
	viper.SetDefault("model.n_epochs", defaultConfig.Model.NEpochs)
	viper.SetDefault("model.lr", defaultConfig.Model.Lr)
	viper.SetDefault("model.reg", defaultConfig.Model.Reg)
	viper.SetDefault("model.init_mean", defaultConfig.Model.InitMean)
	viper.SetDefault("model.init_std", defaultConfig.Model.InitStdDev)
	viper.SetDefault("model.random_state", defaultConfig.Model.RandomState)
	viper.SetDefault("model.verbose", defaultConfig.Model.Verbose)
	// [recommend]
	viper.SetDefault("recommend.top_k", defaultConfig.Recommend.TopK)
	viper.SetDefault("recommend.fit_period", defaultConfig.Recommend.FitPeriod)
}

// LoadConfig loads and validates the configuration from a toml file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration against struct constraints.
func (config *Config) Validate() error {
	return validator.New().Struct(config)
}

// ModelParams converts the model section into hyper-parameters.
func (config *Config) ModelParams() model.Params {
	return model.Params{
		model.NFactors:    config.Model.NFactors,
		model.NEpochs:     config.Model.NEpochs,
		model.Lr:          config.Model.Lr,
		model.Reg:         config.Model.Reg,
		model.InitMean:    config.Model.InitMean,
		model.InitStdDev:  config.Model.InitStdDev,
		model.RandomState: config.Model.RandomState,
	}
}

// FitConfig converts the model section into a fit configuration.
func (config *Config) FitConfig() *model.FitConfig {
	return model.NewFitConfig().SetVerbose(config.Model.Verbose)
}
