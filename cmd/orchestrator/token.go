package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/internal/service"
)

func newTokenCommand() *cobra.Command {
	var (
		subject  string
		role     string
		lifetime time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an API client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if lifetime <= 0 {
				lifetime = cfg.JWT.Expiration
			}
			tokens := service.NewTokenService(service.TokenConfig{
				Secret:   cfg.JWT.Secret,
				Issuer:   cfg.JWT.Issuer,
				Lifetime: lifetime,
			})
			token, expires, err := tokens.Issue(subject, models.ClientRole(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject (client id or tutor uid)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleService), "SERVICE, ADMIN or TUTOR")
	cmd.Flags().DurationVar(&lifetime, "lifetime", 0, "token lifetime (defaults to JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
