// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jackamondo/deskmigrate/internal/adapter"
	"github.com/jackamondo/deskmigrate/internal/api"
	"github.com/jackamondo/deskmigrate/internal/catalog"
	"github.com/jackamondo/deskmigrate/internal/filestore"
	"github.com/jackamondo/deskmigrate/internal/metrics"
	"github.com/jackamondo/deskmigrate/internal/store"
	"github.com/jackamondo/deskmigrate/internal/supervisor"
	"github.com/jackamondo/deskmigrate/internal/webhook"
	"github.com/jackamondo/deskmigrate/model"
)

var instanceID string

var logger log.FieldLogger

func init() {
	instanceID = model.NewID()

	logger = log.WithField("instance", instanceID)

	serverCmd.PersistentFlags().String("listen", ":8075", "The interface and port on which to listen.")
	serverCmd.PersistentFlags().String("database", "sqlite://deskmigrate.db", "The database backing the migration server.")
	serverCmd.PersistentFlags().String("snapshot-dir", "snapshots", "The directory holding snapshot component blobs.")
	serverCmd.PersistentFlags().String("environment", "dev", "The environment tag attached to webhook payloads.")
	serverCmd.PersistentFlags().String("encryption-key", "", "Optional 16, 24 or 32 byte key used to seal instance credentials at rest.")
	serverCmd.PersistentFlags().Duration("poll", 10*time.Second, "The interval on which to poll for migration jobs pending work.")
	serverCmd.PersistentFlags().Float64("source-rps", 5, "Request rate limit against live source instances.")
	serverCmd.PersistentFlags().Float64("target-rps", 5, "Request rate limit against target instances.")
	serverCmd.PersistentFlags().Bool("debug", false, "Whether to output debug logs.")

	viper.SetEnvPrefix("DESKMIGRATE")
	viper.AutomaticEnv()
	for _, flag := range []string{"listen", "database", "snapshot-dir", "environment", "encryption-key", "poll", "source-rps", "target-rps", "debug"} {
		_ = viper.BindPFlag(flag, serverCmd.PersistentFlags().Lookup(flag))
	}
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the deskmigrate server.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		log.SetFormatter(&log.JSONFormatter{})

		listen := viper.GetString("listen")
		database := viper.GetString("database")
		snapshotDir := viper.GetString("snapshot-dir")
		environment := viper.GetString("environment")
		encryptionKey := viper.GetString("encryption-key")
		poll := viper.GetDuration("poll")
		sourceRPS := viper.GetFloat64("source-rps")
		targetRPS := viper.GetFloat64("target-rps")

		sqlStore, err := store.New(database, []byte(encryptionKey), logger)
		if err != nil {
			return err
		}
		defer sqlStore.Close()

		err = sqlStore.Migrate()
		if err != nil {
			return err
		}

		currentCatalog := catalog.Default
		logger.WithFields(log.Fields{
			"database":   database,
			"components": len(currentCatalog.Names()),
		}).Info("Starting deskmigrate server")

		m := metrics.New()

		blobs := filestore.New(snapshotDir)
		adapters := &adapter.Set{
			Snapshot: adapter.NewSourceRegistry(adapter.NewSnapshotSource(sqlStore, blobs)),
			Live:     adapter.NewSourceRegistry(adapter.NewLiveSource(sourceRPS)),
			Target:   adapter.NewTargetRegistry(adapter.NewHTTPTarget(targetRPS)),
		}

		sender := webhook.NewSender(sqlStore, environment)
		jobSupervisor := supervisor.NewJobSupervisor(sqlStore, currentCatalog, adapters, m, sender, instanceID, logger)
		scheduler := supervisor.NewScheduler(jobSupervisor, poll, logger)
		defer scheduler.Close()

		router := mux.NewRouter()
		api.Register(router, &api.Context{
			Store:       sqlStore,
			Supervisor:  jobSupervisor,
			Environment: environment,
			Logger:      logger,
		})
		router.Handle("/metrics", m.Handler()).Methods("GET")

		srv := &http.Server{
			Addr:           listen,
			Handler:        router,
			ReadTimeout:    180 * time.Second,
			WriteTimeout:   180 * time.Second,
			IdleTimeout:    time.Second * 180,
			MaxHeaderBytes: 1 << 20,
		}

		go func() {
			logger.WithField("addr", srv.Addr).Info("Listening")
			err := srv.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Failed to listen and serve")
			}
		}()

		c := make(chan os.Signal, 1)
		// Block until we receive a valid signal.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		logger.WithField("shutdown-signal", sig.String()).Info("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		srv.Shutdown(ctx)

		return nil
	},
}
