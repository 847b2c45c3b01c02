// Package linear files documentation tickets through the Linear GraphQL API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
)

// APIURL is the Linear GraphQL endpoint.
const APIURL = "https://api.linear.app/graphql"

const titleMaxRunes = 80

const issueCreateMutation = `
mutation IssueCreate($title: String!, $description: String!, $projectId: String!, $teamId: String!) {
  issueCreate(input: {
    title: $title,
    description: $description,
    projectId: $projectId,
    teamId: $teamId
  }) {
    success
    issue {
      id
      identifier
      url
    }
  }
}`

// ErrNotCreated is returned when Linear answers success=false.
var ErrNotCreated = errors.New("linear ticket creation failed")

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "GraphQL errors: " + strings.Join(e.Messages, "; ")
}

// Client creates issues in one Linear project.
type Client struct {
	apiKey     string
	projectID  string
	teamID     string
	endpoint   string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a Linear client. All three identifiers are required.
func NewClient(apiKey, projectID, teamID string, log logger.Logger) (*Client, error) {
	if apiKey == "" || projectID == "" || teamID == "" {
		return nil, fmt.Errorf("missing Linear settings (api key, project id or team id): %w", provider.ErrMissingAPIToken)
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Client{
		apiKey:    apiKey,
		projectID: projectID,
		teamID:    teamID,
		endpoint:  APIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}, nil
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type issueCreateResponse struct {
	Data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   *struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateIssue files a documentation-improvement ticket for an accepted cluster.
func (c *Client) CreateIssue(ctx context.Context, cl contracts.Cluster, doc contracts.Document, suggestion string) (contracts.Ticket, error) {
	c.log.Info("[Linear] Creating ticket for %q", Title(cl.Summary))

	body, err := json.Marshal(graphQLRequest{
		Query: issueCreateMutation,
		Variables: map[string]interface{}{
			"title":       Title(cl.Summary),
			"description": Description(cl, doc, suggestion),
			"projectId":   c.projectID,
			"teamId":      c.teamID,
		},
	})
	if err != nil {
		return contracts.Ticket{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return contracts.Ticket{}, fmt.Errorf("failed to create request: %w", err)
	}
	// Personal API keys are sent without a scheme.
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contracts.Ticket{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			err = fmt.Errorf("%w: %v", provider.ErrAuthFailed, err)
		}
		return contracts.Ticket{}, err
	}

	var result issueCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return contracts.Ticket{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range result.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		c.log.Error("[Linear] GraphQL API returned errors: %v", gqlErr)
		return contracts.Ticket{}, gqlErr
	}

	created := result.Data.IssueCreate
	if !created.Success || created.Issue == nil {
		return contracts.Ticket{}, ErrNotCreated
	}

	c.log.Info("[Linear] Created ticket %s", created.Issue.Identifier)
	return contracts.Ticket{
		ID:         created.Issue.ID,
		Identifier: created.Issue.Identifier,
		URL:        created.Issue.URL,
	}, nil
}

// Title is the ticket title, with the summary cut to 80 characters.
func Title(summary string) string {
	if summary == "" {
		summary = "Untitled Issue"
	}
	if r := []rune(summary); len(r) > titleMaxRunes {
		summary = string(r[:titleMaxRunes])
	}
	return "Doc Improvement: " + summary
}

// Description renders the markdown ticket body.
func Description(cl contracts.Cluster, doc contracts.Document, suggestion string) string {
	channel := orNA(cl.ChannelName)
	url := orNA(doc.URL)
	if suggestion == "" {
		suggestion = "No suggestion provided."
	}

	var sb strings.Builder
	sb.WriteString("**Insight from Discord**\n")
	fmt.Fprintf(&sb, "A recurring issue was identified in the `%s` channel related to: *%s*\n\n", channel, orNA(cl.Summary))
	sb.WriteString("**Direct User Quotes**\n")
	sb.WriteString("> " + strings.Join(cl.Quotes, "\n> ") + "\n\n")
	sb.WriteString("**Relevant Documentation**\n")
	sb.WriteString("This feedback appears to relate to the following documentation page:\n")
	fmt.Fprintf(&sb, "[%s](%s)\n\n", url, url)
	sb.WriteString("**Suggested Change**\n")
	sb.WriteString("The following change is recommended to address the user feedback:\n---\n")
	sb.WriteString(suggestion)
	sb.WriteString("\n")
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
