package main

import (
	"context"
	"os"
	"time"

	"podcast-app/config"
	"podcast-app/database"
	adminapi "podcast-app/internal/api/admin"
	catalogapi "podcast-app/internal/api/catalog"
	podcastsapi "podcast-app/internal/api/podcasts"
	rssapi "podcast-app/internal/api/rss"
	workflowapi "podcast-app/internal/api/workflow"
	routes "podcast-app/internal/app/http"
	"podcast-app/internal/app/http/middleware"
	"podcast-app/internal/importer"
	"podcast-app/internal/logging"
	"podcast-app/internal/media"
	"podcast-app/internal/rss"
	"podcast-app/internal/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setup()
			if err != nil {
				return err
			}
			database.InitDB(config.DB_URL, log)
			return nil
		},
	}
}

func setup() (*logrus.Logger, error) {
	config.LoadEnv()
	log, err := logging.New(config.LOG_LEVEL, config.LOG_FORMAT, os.Stdout)
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}
	return log, nil
}

func runServe() error {
	log, err := setup()
	if err != nil {
		return err
	}
	database.InitDB(config.DB_URL, log)

	verifier, err := tokenVerifier(log)
	if err != nil {
		return err
	}

	images := media.NewAcquirer(imageStore(log), config.FETCH_TIMEOUT, config.IMAGE_MAX_BYTES, log)
	fetcher := rss.NewFetcher(config.FETCH_TIMEOUT)
	svc := workflow.NewService(database.DB, log)
	im := importer.New(database.DB, fetcher, images, log)

	if config.LOG_LEVEL != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Verifier: verifier,
		Limiter:  middleware.NewUserRateLimiter(config.RSS_RATE_PER_MIN),
		Log:      log,
		Podcasts: podcastsapi.New(database.DB, svc, im, log),
		Workflow: workflowapi.New(svc, log),
		RSS:      rssapi.New(im, log),
		Admin:    adminapi.New(database.DB, svc, log),
		Catalog:  catalogapi.New(database.DB, config.PUBLIC_BASE_URL, log),
	})

	log.WithField("port", config.PORT).Info("listening")
	return r.Run(":" + config.PORT)
}

// tokenVerifier accepts service-signed tokens, plus identity-provider tokens
// when an issuer is configured.
func tokenVerifier(log logrus.FieldLogger) (middleware.TokenVerifier, error) {
	hmac := middleware.NewHMACVerifier(config.JWT_SECRET)
	if config.OIDC_ISSUER_URL == "" {
		return hmac, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.FETCH_TIMEOUT)
	defer cancel()
	oidcVerifier, err := middleware.NewOIDCVerifier(ctx, config.OIDC_ISSUER_URL, config.OIDC_CLIENT_ID)
	if err != nil {
		return nil, err
	}
	log.WithField("issuer", config.OIDC_ISSUER_URL).Info("accepting identity provider tokens")
	return middleware.AnyVerifier{oidcVerifier, hmac}, nil
}

func imageStore(log logrus.FieldLogger) media.Store {
	if config.S3_BUCKET == "" {
		log.Info("no S3 bucket configured, cover images are stored inline")
		return media.InlineStore{}
	}
	store, err := media.NewS3Store(media.S3Config{
		Bucket:      config.S3_BUCKET,
		Region:      config.S3_REGION,
		EndpointURL: config.S3_ENDPOINT,
		PublicURL:   config.S3_PUBLIC_URL,
	}, log)
	if err != nil {
		log.WithError(err).Warn("S3 unavailable, cover images are stored inline")
		return media.InlineStore{}
	}
	return store
}
