package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/gateway"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "assistme-gateway",
		Short: "Personal assistant API gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	gw, err := gateway.NewGateway()
	if err != nil {
		log.Error().Err(err).Msg("error creating gateway service")
		return err
	}

	if err := gw.Start(); err != nil {
		return err
	}

	log.Info().Msg("gateway stopped")
	return nil
}

func migrate() error {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		log.Error().Err(err).Msg("error creating config manager")
		return err
	}
	config := configManager.GetConfig()

	backendRepo, err := repository.NewPostgresBackend(config.Database.Postgres)
	if err != nil {
		log.Error().Err(err).Msg("error connecting to postgres")
		return err
	}
	defer backendRepo.Close()

	if err := backendRepo.RunMigrations(); err != nil {
		log.Error().Err(err).Msg("error running migrations")
		return err
	}

	log.Info().Msg("migrations applied")
	return nil
}
