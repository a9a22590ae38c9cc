// Package serve implements the web server command.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/bakerbass/GuitarChops/internal/analysis/cache"
	"github.com/bakerbass/GuitarChops/internal/api"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/datastore"
)

// Command creates the serve command running the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long:  "Serve the upload/analyze/export HTTP API for interactive segmentation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "HTTP listen port")
	cmd.Flags().StringVar(&settings.WebServer.Uploads, "uploads", settings.WebServer.Uploads, "Directory for uploaded audio files")

	return cmd
}

func runServer(settings *conf.Settings) error {
	store := datastore.NewSQLiteStore(settings.Datastore.Path, settings.Debug)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	featureCache, err := cache.New(settings.Cache.MaxBytes, settings.Cache.Dir)
	if err != nil {
		return err
	}

	controller, err := api.New(settings, store, featureCache)
	if err != nil {
		return err
	}
	return controller.Start()
}
