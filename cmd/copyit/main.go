package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dashjay/copyit/pkg/copier"
	"github.com/dashjay/copyit/pkg/logging"
	"github.com/dashjay/copyit/pkg/s3error"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// clientSettings are the knobs for reaching the storage service.
// Credentials always come from the default AWS chain.
type clientSettings struct {
	Region    string
	Endpoint  string
	PathStyle bool
}

type clientFactory func(ctx context.Context, s clientSettings) (copier.ObjectCopier, error)

func newS3Client(ctx context.Context, s clientSettings) (copier.ObjectCopier, error) {
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(s.Endpoint, func(e *aws.Endpoint) {
				e.HostnameImmutable = true
			})
		}
		o.UsePathStyle = s.PathStyle
	}), nil
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	conf := newConfig()
	var src, dest string

	rootCmd := &cobra.Command{
		Use:   "copyit",
		Short: "Copy an S3 object",
		Long: `Copy one S3 object to another location with a single server-side copy,
a small stand-in for 'aws s3 cp'. The source and destination buckets are
assumed to exist.`,
		Example:       "  copyit --src s3://bucket-a/file.txt --dest s3://bucket-b/file.txt --log INFO",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return conf.Init()
		},
		RunE: func(c *cobra.Command, args []string) error {
			log, err := logging.New(conf.Viper.GetString("log"), c.ErrOrStderr())
			if err != nil {
				return err
			}
			c.SilenceUsage = true

			client, err := newClient(c.Context(), clientSettings{
				Region:    conf.Viper.GetString("region"),
				Endpoint:  conf.Viper.GetString("endpoint"),
				PathStyle: conf.Viper.GetBool("path_style"),
			})
			if err != nil {
				return err
			}
			return copier.New(client, log).Copy(c.Context(), src, dest)
		},
	}

	rootCmd.PersistentFlags().StringVar(
		&conf.File,
		"config",
		"",
		"Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String(
		"log",
		conf.Flags["log"].DefValue.(string),
		"Set logging level, one of "+strings.Join(logging.Levels, "|"))

	rootCmd.Flags().StringVar(&src, "src", "", "S3 url of source object")
	rootCmd.Flags().StringVar(&dest, "dest", "", "S3 url of destination object")
	rootCmd.Flags().String(
		"region",
		conf.Flags["region"].DefValue.(string),
		"AWS region (default from the AWS environment)")
	rootCmd.Flags().String(
		"endpoint",
		conf.Flags["endpoint"].DefValue.(string),
		"S3 endpoint url, e.g. http://localhost:8000 for 'copyit gateway'")
	rootCmd.Flags().Bool(
		"path-style",
		conf.Flags["path-style"].DefValue.(bool),
		"Use path-style bucket addressing")
	for _, name := range []string{"src", "dest"} {
		if err := rootCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newGatewayCmd(conf))

	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), rootCmd.Flags()} {
		if err := conf.BindFlags(fs); err != nil {
			panic(err)
		}
	}
	return rootCmd
}

// report prints err for the user. Storage service errors are shown as
// returned, followed by what their S3 code means.
func report(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	if detail := s3error.Describe(err); detail != "" {
		fmt.Fprintf(w, "%s: %s\n", s3error.Code(err), detail)
	}
}

func main() {
	if err := newRootCmd(newS3Client).ExecuteContext(context.Background()); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}
