package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "personfinder/internal/jwt_token"
	"personfinder/internal/platform/config"
	"personfinder/pkg/requestcontext"
)

func newTokenCmd() *cobra.Command {
	var (
		caller requestcontext.Caller
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an API caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
			token, err := svc.GenerateToken(caller, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&caller.Subject, "subject", "", "caller name recorded in the token")
	cmd.Flags().StringVar(&caller.WriteDomain, "write-domain", "", "source domain whose records the caller may import")
	cmd.Flags().BoolVar(&caller.FullRead, "full-read", false, "allow reading sensitive fields")
	cmd.Flags().BoolVar(&caller.Privileged, "privileged", false, "allow moderation and note locking")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
