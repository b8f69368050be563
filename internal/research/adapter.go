package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/upstream"
)

// ToolName is the single supported tool identifier.
const ToolName = "search_adhd_research"

// top_k bounds for one retrieval call.
const (
	minTopK     = 1
	maxTopK     = 50
	defaultTopK = 10
)

// SearchArgs defines the tool's argument schema as advertised to the model.
type SearchArgs struct {
	Query string `json:"query" jsonschema_description:"The research question to search for, in plain language"`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Maximum results to return (1-50, default: 10)"`
}

// Definition builds the advertised tool signature.
func Definition() (upstream.Tool, error) {
	schema, err := jsonschema.For[SearchArgs](nil)
	if err != nil {
		return upstream.Tool{}, fmt.Errorf("research: building tool schema: %w", err)
	}
	params, err := json.Marshal(schema)
	if err != nil {
		return upstream.Tool{}, fmt.Errorf("research: encoding tool schema: %w", err)
	}

	return upstream.Tool{
		Type: "function",
		Function: upstream.ToolFunction{
			Name: ToolName,
			Description: "Search peer-reviewed ADHD research. Use when the parent asks what " +
				"the evidence says, whether a treatment works, or for studies on a topic.",
			Parameters: params,
		},
	}, nil
}

// searcher is the retrieval operation the adapter needs. Satisfied by
// *Client; tests substitute a canned implementation.
type searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Record, error)
}

// Adapter executes model-issued research tool calls.
//
// Execute never returns an error: every failure (wrong tool name, malformed
// arguments, service outage) becomes a descriptive text block, because the
// orchestrator must always have some text to append as the tool result.
type Adapter struct {
	client      searcher
	logger      log.Logger
	defaultTopK int
}

// NewAdapter creates an Adapter. topKDefault <= 0 selects the standard
// default of 10.
func NewAdapter(client searcher, logger log.Logger, topKDefault int) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("research: client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("research: logger is required")
	}
	if topKDefault <= 0 {
		topKDefault = defaultTopK
	}
	return &Adapter{client: client, logger: logger, defaultTopK: topKDefault}, nil
}

// Execute validates and runs one tool call. The returned text is the tool
// result fed back to the model; records carry the raw results for the
// caller-facing sources event (nil on any failure).
func (a *Adapter) Execute(ctx context.Context, name, argumentsText string) (text string, records []Record) {
	if name != ToolName {
		a.logger.Warn("unsupported tool requested", "tool", name)
		return fmt.Sprintf("Error: unsupported tool %q; only %q is available.", name, ToolName), nil
	}

	var args SearchArgs
	if err := json.Unmarshal([]byte(argumentsText), &args); err != nil {
		a.logger.Warn("tool arguments failed to parse", "error", err)
		return "Error: the tool arguments were not valid JSON. Expected {\"query\": \"...\"}.", nil
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return "Error: the search query was empty. Provide a non-empty \"query\" string.", nil
	}

	topK := args.TopK
	switch {
	case topK == 0:
		topK = a.defaultTopK
	case topK < minTopK:
		topK = minTopK
	case topK > maxTopK:
		topK = maxTopK
	}

	results, err := a.client.Search(ctx, query, topK)
	if err != nil {
		a.logger.Warn("research lookup failed", "error", err, "query_length", len(query))
		return fmt.Sprintf("Error: the research lookup could not be completed (%v). "+
			"Answer from general knowledge and say the literature search failed.", err), nil
	}

	if len(results) == 0 {
		return fmt.Sprintf("No research results found for %q.", query), nil
	}

	return formatResults(query, results), results
}

// formatResults renders the ranked records plus the per-topic tally the model
// uses to weigh topics.
func formatResults(query string, records []Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research results for %q (%d found):\n\n", query, len(records))

	topicCounts := make(map[string]int)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Title)
		if r.Year > 0 {
			fmt.Fprintf(&b, " (%d)", r.Year)
		}
		if r.Venue != "" {
			fmt.Fprintf(&b, " — %s", r.Venue)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Relevance: %.2f\n", r.Score)
		if abstract := strings.TrimSpace(r.Abstract); abstract != "" {
			fmt.Fprintf(&b, "   %s\n", abstract)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", r.URL)
		}
		b.WriteString("\n")

		topic := r.Topic
		if topic == "" {
			topic = "uncategorized"
		}
		topicCounts[topic]++
	}

	topics := make([]string, 0, len(topicCounts))
	for topic := range topicCounts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	b.WriteString("Result counts by topic:")
	for _, topic := range topics {
		fmt.Fprintf(&b, " %s: %d;", topic, topicCounts[topic])
	}
	return strings.TrimSuffix(b.String(), ";")
}
