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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courserec/courserec/base/log"
	"github.com/courserec/courserec/cmd/version"
	"github.com/courserec/courserec/config"
	"github.com/courserec/courserec/recommend"
	"github.com/courserec/courserec/storage/blob"
	"github.com/courserec/courserec/storage/data"
)

var courserecCommand = &cobra.Command{
	Use:   "courserec",
	Short: "The course recommendation engine.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// Load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}

		// Connect data store
		database, err := data.Open(conf.Database.DataStore)
		if err != nil {
			log.Logger().Fatal("failed to connect data store", zap.Error(err))
		}
		if err = database.Init(); err != nil {
			log.Logger().Fatal("failed to init data store", zap.Error(err))
		}
		defer func() {
			if err = database.Close(); err != nil {
				log.Logger().Error("failed to close data store", zap.Error(err))
			}
		}()

		// Create recommender
		store := blob.NewPOSIX(conf.Model.Path)
		recommender := recommend.NewRecommender(database, store, conf.ModelParams())
		recommender.SetFitConfig(conf.FitConfig())
		if err = recommender.LoadModel(); err != nil {
			log.Logger().Warn("no servable model snapshot, waiting for first training run", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Train once and exit
		if once, _ := cmd.PersistentFlags().GetBool("once"); once {
			if err = recommender.TrainModel(ctx); err != nil {
				log.Logger().Fatal("failed to train model", zap.Error(err))
			}
			return
		}

		// Periodic retraining
		if err = recommender.TrainModel(ctx); err != nil {
			log.Logger().Error("failed to train model", zap.Error(err))
		}
		ticker := time.NewTicker(conf.Recommend.FitPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err = recommender.TrainModel(ctx); err != nil {
					log.Logger().Error("failed to train model", zap.Error(err))
				}
			case <-ctx.Done():
				log.Logger().Info("stop courserec successfully")
				return
			}
		}
	},
}

func init() {
	log.AddFlags(courserecCommand.PersistentFlags())
	courserecCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	courserecCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	courserecCommand.PersistentFlags().BoolP("version", "v", false, "courserec version")
	courserecCommand.PersistentFlags().Bool("once", false, "train the model once and exit")
}

func main() {
	if err := courserecCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
