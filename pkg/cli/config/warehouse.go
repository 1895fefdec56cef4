package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/repository"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Warehouse selects and configures the data source
type Warehouse struct {
	UseStaticData bool
	StaticData    string

	ProjectID    string
	PrivateKey   string
	PrivateKeyID string
	ClientEmail  string
	TokenURI     string

	Table        string
	LookbackDays int
}

// Flags returns CLI flags for Warehouse configuration
func (w *Warehouse) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "use-static-data",
			Usage:       "Read bundled or local CSV data instead of querying BigQuery",
			Category:    "Data source",
			Sources:     cli.EnvVars("USE_STATIC_DATA"),
			Destination: &w.UseStaticData,
		},
		&cli.StringFlag{
			Name:        "static-data",
			Usage:       "CSV file used in static mode (bundled sample when empty)",
			Category:    "Data source",
			Sources:     cli.EnvVars("TALLY_STATIC_DATA"),
			Destination: &w.StaticData,
		},
		&cli.StringFlag{
			Name:        "google-project-id",
			Usage:       "GCP project running the BigQuery jobs",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("GOOGLE_PROJECT_ID"),
			Destination: &w.ProjectID,
		},
		&cli.StringFlag{
			Name:        "google-private-key",
			Usage:       "Service account private key (PEM, literal \\n allowed)",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("GOOGLE_PRIVATE_KEY"),
			Destination: &w.PrivateKey,
		},
		&cli.StringFlag{
			Name:        "google-private-key-id",
			Usage:       "Service account private key ID",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("GOOGLE_PRIVATE_KEY_ID"),
			Destination: &w.PrivateKeyID,
		},
		&cli.StringFlag{
			Name:        "google-client-email",
			Usage:       "Service account email",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("GOOGLE_CLIENT_EMAIL"),
			Destination: &w.ClientEmail,
		},
		&cli.StringFlag{
			Name:        "google-token-uri",
			Usage:       "OAuth2 token endpoint",
			Category:    "BigQuery",
			Value:       defaultTokenURI,
			Sources:     cli.EnvVars("GOOGLE_TOKEN_URI"),
			Destination: &w.TokenURI,
		},
		&cli.StringFlag{
			Name:        "bigquery-table",
			Usage:       "Daily result tables as project.dataset.prefix",
			Category:    "BigQuery",
			Value:       "marshmallow-dashboard.results.downloads",
			Sources:     cli.EnvVars("TALLY_BIGQUERY_TABLE"),
			Destination: &w.Table,
		},
		&cli.IntFlag{
			Name:        "lookback-days",
			Usage:       "Number of days queried",
			Category:    "BigQuery",
			Value:       30,
			Sources:     cli.EnvVars("TALLY_LOOKBACK_DAYS"),
			Destination: &w.LookbackDays,
		},
	}
}

// Mode returns the name of the source Configure creates
func (w *Warehouse) Mode() types.SourceName {
	if w.UseStaticData {
		return types.SourceStatic
	}
	return types.SourceBigQuery
}

// Configure creates the data source selected by UseStaticData. Static mode
// needs no credentials and never opens a network connection.
func (w *Warehouse) Configure(ctx context.Context) (interfaces.DataSource, error) {
	logger := ctxlog.From(ctx)

	if w.UseStaticData {
		logger.Info("Using static data", "path", w.StaticData)
		source, err := repository.NewStatic(w.StaticData)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init static data source")
		}
		return source, nil
	}

	credentials, err := w.credentialsJSON()
	if err != nil {
		return nil, err
	}

	source, err := repository.NewBigQuery(ctx, w.ProjectID, w.Table, w.LookbackDays,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(bigquery.Scope),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init bigquery data source",
			goerr.V("project", w.ProjectID),
			goerr.V("table", w.Table),
		)
	}
	return source, nil
}

// credentialsJSON assembles a service account key file from the flags
func (w *Warehouse) credentialsJSON() ([]byte, error) {
	var missing []string
	if w.ProjectID == "" {
		missing = append(missing, "GOOGLE_PROJECT_ID")
	}
	if w.PrivateKey == "" {
		missing = append(missing, "GOOGLE_PRIVATE_KEY")
	}
	if w.ClientEmail == "" {
		missing = append(missing, "GOOGLE_CLIENT_EMAIL")
	}
	if len(missing) > 0 {
		return nil, goerr.New("BigQuery credentials are missing, set them or USE_STATIC_DATA=true",
			goerr.V("missing", missing))
	}

	tokenURI := w.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     w.ProjectID,
		"private_key_id": w.PrivateKeyID,
		"private_key":    strings.ReplaceAll(w.PrivateKey, `\n`, "\n"),
		"client_email":   w.ClientEmail,
		"token_uri":      tokenURI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode credentials")
	}
	return data, nil
}

// LogValue returns structured log value. Key material is never logged.
func (w Warehouse) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", w.Mode().String()),
		slog.String("static_data", w.StaticData),
		slog.String("project", w.ProjectID),
		slog.String("client_email", w.ClientEmail),
		slog.Bool("has_private_key", w.PrivateKey != ""),
		slog.String("table", w.Table),
		slog.Int("lookback_days", w.LookbackDays),
	)
}
