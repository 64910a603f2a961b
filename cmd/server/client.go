package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/transport/client"
)

const clientTimeout = 10 * time.Second

var createCmd = &cobra.Command{
	Use:   "create [URL]",
	Short: "Create a short link",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateLink,
}

var getCmd = &cobra.Command{
	Use:   "get [ID]",
	Short: "Get information about a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetLink,
}

var updateCmd = &cobra.Command{
	Use:   "update [ID]",
	Short: "Update a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateLink,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [ID]",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteLink,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your links",
	RunE:  runListLinks,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [CODE]",
	Short: "Show where a short code or alias leads",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [CODE] [PASSWORD]",
	Short: "Resolve a password protected link",
	Args:  cobra.ExactArgs(2),
	RunE:  runVerify,
}

var clickCmd = &cobra.Command{
	Use:   "click [CODE]",
	Short: "Record a click against a short code or alias",
	Args:  cobra.ExactArgs(1),
	RunE:  runClick,
}

func registerClientCommands(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "Server URL")
	cmd.PersistentFlags().StringP("token", "t", "", "Bearer token for owner commands")

	createCmd.Flags().String("alias", "", "Custom alias")
	createCmd.Flags().String("password", "", "Password required to follow the link")
	createCmd.Flags().Duration("expires-in", 0, "Lifetime of the link (server default when 0)")

	updateCmd.Flags().String("url", "", "New destination URL")
	updateCmd.Flags().String("alias", "", "New custom alias")
	updateCmd.Flags().Bool("clear-alias", false, "Remove the custom alias")
	updateCmd.Flags().String("password", "", "New password")
	updateCmd.Flags().Bool("clear-password", false, "Remove password protection")
	updateCmd.Flags().Duration("expires-in", 0, "New lifetime counted from now")
	updateCmd.Flags().Bool("clear-expiration", false, "Remove the expiration date")
	updateCmd.Flags().Bool("active", true, "Activate or deactivate the link")

	clickCmd.Flags().String("user-agent", "linkvault-cli", "Agent string recorded with the click")

	cmd.AddCommand(createCmd, getCmd, updateCmd, deleteCmd, listCmd, resolveCmd, verifyCmd, clickCmd)
}

func newCommands(cmd *cobra.Command) *client.Commands {
	serverURL, _ := cmd.Flags().GetString("server-url")
	token, _ := cmd.Flags().GetString("token")
	return client.NewCommands(client.NewClient(serverURL, token))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid link id %q", raw)
	}
	return id, nil
}

func runCreateLink(cmd *cobra.Command, args []string) error {
	req := &domain.CreateLinkRequest{OriginalURL: args[0]}
	req.CustomAlias, _ = cmd.Flags().GetString("alias")
	req.Password, _ = cmd.Flags().GetString("password")
	if expiresIn, _ := cmd.Flags().GetDuration("expires-in"); expiresIn > 0 {
		expiration := time.Now().Add(expiresIn).UTC()
		req.ExpirationDate = &expiration
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Create(ctx, req)
}

func runGetLink(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Get(ctx, id)
}

func runUpdateLink(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	req, err := updateRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Update(ctx, id, req)
}

// updateRequestFromFlags sends only the fields whose flags were given
func updateRequestFromFlags(cmd *cobra.Command) (*domain.UpdateLinkRequest, error) {
	flags := cmd.Flags()
	req := &domain.UpdateLinkRequest{}

	if flags.Changed("url") {
		url, _ := flags.GetString("url")
		req.OriginalURL = &url
	}

	clearAlias, _ := flags.GetBool("clear-alias")
	switch {
	case clearAlias && flags.Changed("alias"):
		return nil, fmt.Errorf("--alias and --clear-alias are mutually exclusive")
	case clearAlias:
		empty := ""
		req.CustomAlias = &empty
	case flags.Changed("alias"):
		alias, _ := flags.GetString("alias")
		req.CustomAlias = &alias
	}

	clearPassword, _ := flags.GetBool("clear-password")
	switch {
	case clearPassword && flags.Changed("password"):
		return nil, fmt.Errorf("--password and --clear-password are mutually exclusive")
	case clearPassword:
		empty := ""
		req.Password = &empty
	case flags.Changed("password"):
		password, _ := flags.GetString("password")
		req.Password = &password
	}

	req.ClearExpiration, _ = flags.GetBool("clear-expiration")
	if flags.Changed("expires-in") {
		expiresIn, _ := flags.GetDuration("expires-in")
		expiration := time.Now().Add(expiresIn).UTC()
		req.ExpirationDate = &expiration
	}

	if flags.Changed("active") {
		active, _ := flags.GetBool("active")
		req.IsActive = &active
	}

	return req, nil
}

func runDeleteLink(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Delete(ctx, id)
}

func runListLinks(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).List(ctx)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Resolve(ctx, args[0])
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Verify(ctx, args[0], args[1])
}

func runClick(cmd *cobra.Command, args []string) error {
	userAgent, _ := cmd.Flags().GetString("user-agent")

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	return newCommands(cmd).Click(ctx, args[0], userAgent)
}
