package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
}

// NewCommands creates a new Commands instance
func NewCommands(client *Client) *Commands {
	return &Commands{
		client: client,
	}
}

// Create creates a short link and displays the result
func (c *Commands) Create(ctx context.Context, req *domain.CreateLinkRequest) error {
	result, err := c.client.CreateLink(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrAliasConflict) {
			fmt.Printf("Alias '%s' is already in use\n", req.CustomAlias)
			return nil
		}
		return err
	}

	fmt.Printf("Short link created:\n")
	printLink(result)

	return nil
}

// Get retrieves and displays information about a link
func (c *Commands) Get(ctx context.Context, id int64) error {
	result, err := c.client.GetLink(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Printf("Link %d not found\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("Link Information:\n")
	printLink(result)

	return nil
}

// Update changes a link and displays the result
func (c *Commands) Update(ctx context.Context, id int64, req *domain.UpdateLinkRequest) error {
	result, err := c.client.UpdateLink(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fmt.Printf("Link %d not found\n", id)
			return nil
		case errors.Is(err, domain.ErrAliasConflict):
			fmt.Printf("Alias is already in use\n")
			return nil
		}
		return err
	}

	fmt.Printf("Link updated:\n")
	printLink(result)

	return nil
}

// Delete removes a link
func (c *Commands) Delete(ctx context.Context, id int64) error {
	err := c.client.DeleteLink(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Printf("Link %d not found\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("Link %d deleted successfully\n", id)
	return nil
}

// List displays all owned links in a table format
func (c *Commands) List(ctx context.Context) error {
	links, err := c.client.ListLinks(ctx)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		fmt.Println("No links found")
		return nil
	}

	fmt.Printf("%-6s %-10s %-15s %-50s %-8s %-20s %s\n", "ID", "Code", "Alias", "Original URL", "Active", "Expires", "Clicks")
	fmt.Println(strings.Repeat("-", 125))

	for _, link := range links {
		alias := "-"
		if link.CustomAlias != nil {
			alias = *link.CustomAlias
		}

		expires := "Never"
		if link.ExpirationDate != nil {
			expires = link.ExpirationDate.Format("2006-01-02 15:04:05")
		}

		originalURL := link.OriginalURL
		if len(originalURL) > 50 {
			originalURL = originalURL[:47] + "..."
		}

		fmt.Printf("%-6d %-10s %-15s %-50s %-8t %-20s %d\n",
			link.ID,
			link.ShortCode,
			alias,
			originalURL,
			link.IsActive,
			expires,
			link.ClickCount,
		)
	}

	return nil
}

// Resolve displays where a code leads
func (c *Commands) Resolve(ctx context.Context, code string) error {
	resolution, err := c.client.Resolve(ctx, code)
	if err != nil {
		return printResolveError(code, err)
	}

	if resolution.PasswordRequired {
		fmt.Printf("Code '%s' is password protected\n", code)
		return nil
	}

	fmt.Printf("%s -> %s\n", code, resolution.OriginalURL)
	return nil
}

// Verify resolves a password protected code
func (c *Commands) Verify(ctx context.Context, code, password string) error {
	resolution, err := c.client.VerifyPassword(ctx, code, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) {
			fmt.Printf("Invalid password for code '%s'\n", code)
			return nil
		}
		return printResolveError(code, err)
	}

	fmt.Printf("%s -> %s\n", code, resolution.OriginalURL)
	return nil
}

// Click records a click against a code
func (c *Commands) Click(ctx context.Context, code, userAgent string) error {
	click, err := c.client.RegisterClick(ctx, code, userAgent)
	if err != nil {
		return printResolveError(code, err)
	}

	fmt.Printf("Click %d recorded at %s\n", click.ID, click.ClickedAt.Format(time.RFC3339))
	return nil
}

func printResolveError(code string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		fmt.Printf("Code '%s' not found\n", code)
		return nil
	case errors.Is(err, domain.ErrExpired):
		fmt.Printf("Code '%s' has expired\n", code)
		return nil
	}
	return err
}

func printLink(link *domain.LinkResponse) {
	fmt.Printf("ID: %d\n", link.ID)
	fmt.Printf("Short Code: %s\n", link.ShortCode)
	fmt.Printf("Short URL: %s\n", link.ShortURL)
	if link.AliasURL != "" {
		fmt.Printf("Alias URL: %s\n", link.AliasURL)
	}
	fmt.Printf("Original URL: %s\n", link.OriginalURL)
	fmt.Printf("Active: %t\n", link.IsActive)
	fmt.Printf("Password Protected: %t\n", link.HasPassword)
	if link.ExpirationDate != nil {
		fmt.Printf("Expires At: %s\n", link.ExpirationDate.Format(time.RFC3339))
	} else {
		fmt.Printf("Expires At: Never\n")
	}
	fmt.Printf("Clicks: %d\n", link.ClickCount)
	fmt.Printf("Created At: %s\n", link.CreatedAt.Format(time.RFC3339))
}
