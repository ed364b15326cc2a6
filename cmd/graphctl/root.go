package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	"github.com/Shani815/vctalenthub-sub000/pkg/client"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	apiURL  string
	token   string
	userID  string
	secret  string
	issuer  string
	output  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "graphctl",
		Short:         "Browse and manage the professional network graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("GRAPH_API_URL", "http://localhost:8080"), "Base URL of the graph API")
	flags.StringVar(&opts.token, "token", os.Getenv("GRAPH_TOKEN"), "Bearer token for the API")
	flags.StringVar(&opts.userID, "user", os.Getenv("GRAPH_USER"), "Member id to mint a token for when --token is empty")
	flags.StringVar(&opts.secret, "secret", os.Getenv("JWT_SECRET"), "HS256 secret used to mint a token")
	flags.StringVar(&opts.issuer, "issuer", envOr("JWT_ISSUER", "vctalenthub"), "Issuer for minted tokens")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Per-request timeout")

	cmd.AddCommand(
		newGraphCmd(opts),
		newConnectCmd(opts),
		newRespondCmd(opts),
		newStatusCmd(opts),
		newPendingCmd(opts),
		newIntroCmd(opts),
		newIntrosCmd(opts),
		newQuotaCmd(opts),
		newApplyCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// bearer returns the configured token, minting one for --user when only a
// secret is available
func (o *rootOptions) bearer() (string, error) {
	if o.token != "" {
		return o.token, nil
	}
	if o.userID == "" || o.secret == "" {
		return "", fmt.Errorf("either --token or both --user and --secret are required")
	}
	gen, err := auth.NewJWTGenerator(o.secret, o.issuer, nil, time.Hour)
	if err != nil {
		return "", err
	}
	return gen.GenerateToken(o.userID, "", nil)
}

func (o *rootOptions) client() (*client.Client, error) {
	token, err := o.bearer()
	if err != nil {
		return nil, err
	}
	return client.New(o.apiURL,
		client.WithToken(token),
		client.WithHTTPClient(&http.Client{Timeout: o.timeout}),
	), nil
}

// print writes v as json or yaml, or calls text for the default format
func (o *rootOptions) print(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch o.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", o.output)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
