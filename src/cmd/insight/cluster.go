package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"insight-agent/src/contracts"
	"insight-agent/src/insight"
	"insight-agent/src/pipeline"
)

var clusterInput string

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run extraction and clustering on conversations from a file",
	Long: `Reads conversations from a JSON or YAML file, runs the extraction and
deduplication engine and prints the clusters as JSON. Nothing is filed or stored.

The file holds a list of conversations:

  - channel_name: api
    main_message: "POST /v1/users returns 500"
    thread_messages: ["same here"]
    quotes: ["'POST /v1/users returns 500' - (from ana)", "'same here' - (from bo)"]`,
	Example: `  insight cluster --input conversations.json
  insight cluster --input export.yaml > clusters.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr()

		conversations, err := loadConversations(clusterInput)
		if err != nil {
			return err
		}

		engine, err := pipeline.NewEngine(appConfig, log)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		res, err := engine.Run(ctx, conversations)
		if err != nil {
			return err
		}
		return printJSON(newClusterOutput(res))
	},
}

func init() {
	clusterCmd.Flags().StringVarP(&clusterInput, "input", "i", "", "Conversations file (.json, .yaml or .yml)")
	_ = clusterCmd.MarkFlagRequired("input")
}

// clusterOutput is what the cluster command prints.
type clusterOutput struct {
	Conversations int                 `json:"conversations"`
	Batches       int                 `json:"batches"`
	Extracted     int                 `json:"extracted"`
	Noise         int                 `json:"noise"`
	Clusters      []contracts.Cluster `json:"clusters"`
	Rejected      []contracts.Cluster `json:"rejected"`
	BatchErrors   []string            `json:"batch_errors,omitempty"`
}

func newClusterOutput(res *insight.Result) clusterOutput {
	out := clusterOutput{
		Conversations: res.Conversations,
		Batches:       res.Batches,
		Extracted:     res.Extracted,
		Noise:         res.Noise,
		Clusters:      res.Clusters,
		Rejected:      res.Rejected,
	}
	if out.Clusters == nil {
		out.Clusters = []contracts.Cluster{}
	}
	if out.Rejected == nil {
		out.Rejected = []contracts.Cluster{}
	}
	for _, err := range res.BatchErrors {
		out.BatchErrors = append(out.BatchErrors, err.Error())
	}
	return out
}

// loadConversations decodes a conversation list, picking the format from the
// file extension.
func loadConversations(path string) ([]contracts.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var conversations []contracts.Conversation
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &conversations)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &conversations)
	default:
		return nil, fmt.Errorf("unsupported input format %q (use .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, c := range conversations {
		if strings.TrimSpace(c.ChannelName) == "" {
			return nil, fmt.Errorf("conversation %d has no channel_name", i)
		}
	}
	return conversations, nil
}
