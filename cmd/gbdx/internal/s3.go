package internal

import (
	"fmt"
	"os"

	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"github.com/dangazineu/gbdx/internal/logging"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/dangazineu/gbdx/internal/s3creds"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewS3Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "s3",
		Aliases: []string{"s3creds"},
		Short:   "S3 user commands",
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show the S3 bucket, prefix and temporary credentials of the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newAPIClient(cmd, logging.FromContext(cmd.Context()))
			if err != nil {
				return err
			}
			creds, err := client.S3Info(cmd.Context(), registry.MaxS3Seconds)
			if err != nil {
				return err
			}
			return showValue(cmd.OutOrStdout(), creds)
		},
	}

	cmd.AddCommand(info)
	return cmd
}

func NewS3TempCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3temp",
		Short: "Temporary S3 credentials for the GBDX customer data bucket",
	}
	cmd.AddCommand(newS3TempSetCmd(), newS3TempClearCmd())
	return cmd
}

func newS3TempSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Write temporary S3 credentials for awscli, s3cmd or the shell",
		Long: `Set writes temporary GBDX S3 credentials to one or more targets:

  --awscli   the awscli shared credentials file (~/.aws/credentials)
  --s3cmd    the s3cmd configuration file
  --environ  shell variable assignments printed to stdout

Existing files are updated in place. No backups are made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			awscli, _ := cmd.Flags().GetBool("awscli")
			profile, _ := cmd.Flags().GetString("awscli-profile")
			s3cmd, _ := cmd.Flags().GetBool("s3cmd")
			s3cmdConfig, _ := cmd.Flags().GetString("s3cmd-config")
			environ, _ := cmd.Flags().GetBool("environ")
			export, _ := cmd.Flags().GetBool("environ-export")
			printToken, _ := cmd.Flags().GetBool("print-token")
			duration, _ := cmd.Flags().GetInt("duration")

			if !awscli && !s3cmd && !environ {
				return fmt.Errorf("must specify at least one of --awscli, --s3cmd or --environ")
			}

			logger := logging.FromContext(cmd.Context())
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}

			client := registry.NewClient(settings.Endpoint, settings.Token, registry.WithLogger(logger))
			creds, err := client.S3Info(cmd.Context(), duration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if printToken {
				fmt.Fprintf(out, "GBDX token: %s\n", settings.Token)
			}

			fs := afero.NewOsFs()
			if awscli {
				path := s3creds.AWSCredentialsPath(home)
				if err := s3creds.WriteAWSCLI(fs, path, profile, creds); err != nil {
					return err
				}
				logger.Info("wrote awscli credentials", zap.String("path", path), zap.String("profile", profile))
			}
			if s3cmd {
				path := s3creds.ExpandHome(s3cmdConfig, home)
				if err := s3creds.WriteS3cmd(fs, path, creds); err != nil {
					return err
				}
				logger.Info("wrote s3cmd credentials", zap.String("path", path))
			}
			if environ {
				fmt.Fprint(out, s3creds.Environ(creds, export))
			}
			return nil
		},
	}

	cmd.Flags().BoolP("awscli", "a", false, "Write the credentials to the awscli credentials file.")
	cmd.Flags().StringP("awscli-profile", "o", s3creds.DefaultAWSProfile, "awscli profile to write the credentials to.")
	cmd.Flags().BoolP("s3cmd", "s", false, "Write the credentials to the s3cmd config file.")
	cmd.Flags().String("s3cmd-config", s3creds.DefaultS3cmdConfig, "s3cmd config file.")
	cmd.Flags().BoolP("environ", "e", false, "Print the credentials as environment variables.")
	cmd.Flags().Bool("environ-export", false, "Prefix each environment variable with export.")
	cmd.Flags().BoolP("print-token", "p", false, "Print the GBDX token.")
	cmd.Flags().IntP("duration", "d", registry.MaxS3Seconds,
		fmt.Sprintf("Lifetime of the credentials in seconds (%d-%d).", registry.MinS3Seconds, registry.MaxS3Seconds))

	return cmd
}

func newS3TempClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove temporary credentials from config files (not supported)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return gerrors.New(gerrors.CodeNotImplemented, "s3temp clear is not supported")
		},
	}
}
