package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/lucasnoah/promptsmith/internal/config"
)

// wire adapts one hosted completion API. Each provider differs only in how
// the request body is built, how headers are set, and how the reply text is
// pulled out of the response.
type wire struct {
	defaultEndpoint string
	defaultModel    string
	buildRequest    func(model string, maxTokens int, temperature float64, system, user string) ([]byte, error)
	setHeaders      func(req *http.Request, apiKey string) error
	parseResponse   func(body []byte) (string, error)
}

// LLM generates changes by prompting a hosted completion API. Analyze asks
// for a JSON plan; Modify asks for a full rewrite of each planned file.
type LLM struct {
	provider string
	cfg      config.StrategyConfig
	client   *http.Client
	wire     wire
}

// NewLLM builds a strategy for a named provider. Unknown providers and
// missing credentials are errors; the selector turns those into a
// degradation to the baseline.
func NewLLM(provider string, cfg config.StrategyConfig, client *http.Client) (*LLM, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var w wire
	switch provider {
	case "anthropic":
		w = anthropicWire()
	case "openai":
		w = openaiWire()
	default:
		return nil, fmt.Errorf("unsupported strategy provider %q", provider)
	}
	if providerAPIKey(provider, cfg) == "" {
		return nil, fmt.Errorf("missing credentials: set %s", keyEnvName(provider, cfg))
	}
	return &LLM{provider: provider, cfg: cfg, client: client, wire: w}, nil
}

func (l *LLM) Name() string { return l.provider }

func (l *LLM) Analyze(ctx context.Context, workspace, instruction string) (*Analysis, error) {
	snap, err := scanWorkspace(workspace, true)
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}

	reply, err := l.complete(ctx, analysisSystemPrompt, analysisUserPrompt(snap, instruction))
	if err != nil {
		return nil, err
	}

	var plan struct {
		FilesToModify []string `json:"files_to_modify"`
		Analysis      string   `json:"analysis"`
		Approach      string   `json:"approach"`
		Dependencies  []string `json:"dependencies"`
		Risks         []string `json:"risks"`
	}
	if err := json.Unmarshal(extractJSON(reply), &plan); err != nil {
		return nil, fmt.Errorf("parsing analysis reply: %w", err)
	}

	return &Analysis{
		Files:         snap.Files,
		FileTypes:     snap.FileTypes,
		MainFiles:     snap.MainFiles,
		FilesToModify: plan.FilesToModify,
		Rationale:     plan.Analysis,
		Approach:      plan.Approach,
		Dependencies:  plan.Dependencies,
		Risks:         plan.Risks,
	}, nil
}

func (l *LLM) Modify(ctx context.Context, workspace string, analysis *Analysis, instruction string) (ChangeSet, error) {
	var changes ChangeSet
	for _, rel := range analysis.FilesToModify {
		current, readErr := readWorkspaceFile(workspace, rel)

		reply, err := l.complete(ctx, modifySystemPrompt, modifyUserPrompt(rel, current, instruction, analysis))
		if err != nil {
			return nil, fmt.Errorf("rewriting %s: %w", rel, err)
		}
		updated := stripFences(reply)
		if updated == "" || updated == current {
			continue
		}

		if readErr != nil {
			changes = append(changes, Change{
				Op:          OpCreate,
				Path:        rel,
				NewContent:  updated,
				Description: fmt.Sprintf("Created %s", rel),
			})
			continue
		}
		changes = append(changes, Change{
			Op:          OpEdit,
			Path:        rel,
			OldContent:  current,
			NewContent:  updated,
			Description: fmt.Sprintf("Modified %s", rel),
		})
	}
	return changes, nil
}

// complete sends one system+user exchange and returns the reply text.
func (l *LLM) complete(ctx context.Context, system, user string) (string, error) {
	model := l.cfg.Model
	if model == "" {
		model = l.wire.defaultModel
	}
	maxTokens := l.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body, err := l.wire.buildRequest(model, maxTokens, l.cfg.Temperature, system, user)
	if err != nil {
		return "", err
	}

	endpoint := l.cfg.Endpoint
	if endpoint == "" {
		endpoint = l.wire.defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json")
	if err := l.wire.setHeaders(req, providerAPIKey(l.provider, l.cfg)); err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s: %s", l.provider, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", err
	}
	return l.wire.parseResponse(buf.Bytes())
}

const analysisSystemPrompt = "You are a senior engineer planning a minimal, safe code change. " +
	"Reply with a single JSON object and nothing else."

func analysisUserPrompt(snap *snapshot, instruction string) string {
	var b strings.Builder
	b.WriteString("Repository files:\n")
	for _, f := range snap.Files {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if len(snap.MainFiles) > 0 {
		fmt.Fprintf(&b, "\nKey files: %s\n", strings.Join(snap.MainFiles, ", "))
	}
	if len(snap.Contents) > 0 {
		b.WriteString("\nFile contents:\n")
		paths := make([]string, 0, len(snap.Contents))
		for p := range snap.Contents {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", p, snap.Contents[p])
		}
	}
	fmt.Fprintf(&b, "\nTask: %s\n", instruction)
	b.WriteString(`
Respond with JSON of this shape:
{"files_to_modify": ["path", ...], "analysis": "...", "approach": "...", "dependencies": ["..."], "risks": ["..."]}`)
	return b.String()
}

const modifySystemPrompt = "You are a senior engineer applying a planned code change. " +
	"Reply with the complete new file content and nothing else. No commentary, no markdown fences."

func modifyUserPrompt(path, current, instruction string, analysis *Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", instruction)
	if analysis.Approach != "" {
		fmt.Fprintf(&b, "Approach: %s\n", analysis.Approach)
	}
	fmt.Fprintf(&b, "\nFile: %s\n", path)
	if current == "" {
		b.WriteString("The file does not exist yet. Produce its full content.\n")
	} else {
		fmt.Fprintf(&b, "Current content:\n%s\n\nProduce the full updated content.\n", current)
	}
	return b.String()
}

// extractJSON returns the outermost JSON object in a reply, tolerating
// surrounding prose or markdown fences.
func extractJSON(reply string) []byte {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return []byte(reply)
	}
	return []byte(reply[start : end+1])
}

// stripFences removes a wrapping markdown code fence, with or without a
// language tag.
func stripFences(reply string) string {
	out := strings.TrimSpace(reply)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```")
	if idx := strings.Index(out, "\n"); idx != -1 {
		out = out[idx+1:]
	}
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}

func anthropicWire() wire {
	return wire{
		defaultEndpoint: "https://api.anthropic.com/v1/messages",
		defaultModel:    "claude-3-5-sonnet-20240620",
		buildRequest: func(model string, maxTokens int, temperature float64, system, user string) ([]byte, error) {
			req := map[string]interface{}{
				"model":      model,
				"max_tokens": maxTokens,
				"system":     system,
				"messages": []map[string]interface{}{
					{"role": "user", "content": []map[string]string{{"type": "text", "text": user}}},
				},
			}
			if temperature > 0 {
				req["temperature"] = temperature
			}
			return json.Marshal(req)
		},
		setHeaders: func(req *http.Request, apiKey string) error {
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
			return nil
		},
		parseResponse: func(body []byte) (string, error) {
			var resp struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", err
			}
			if len(resp.Content) == 0 {
				return "", nil
			}
			return resp.Content[0].Text, nil
		},
	}
}

func openaiWire() wire {
	return wire{
		defaultEndpoint: "https://api.openai.com/v1/chat/completions",
		defaultModel:    "gpt-4",
		buildRequest: func(model string, maxTokens int, temperature float64, system, user string) ([]byte, error) {
			req := map[string]interface{}{
				"model": model,
				"messages": []map[string]string{
					{"role": "system", "content": system},
					{"role": "user", "content": user},
				},
				"max_tokens": maxTokens,
			}
			if temperature > 0 {
				req["temperature"] = temperature
			}
			return json.Marshal(req)
		},
		setHeaders: func(req *http.Request, apiKey string) error {
			req.Header.Set("authorization", "Bearer "+apiKey)
			return nil
		},
		parseResponse: func(body []byte) (string, error) {
			var resp struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", nil
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		},
	}
}

// keyEnvName resolves which environment variable holds the provider key.
func keyEnvName(provider string, cfg config.StrategyConfig) string {
	if cfg.APIKeyEnv != "" {
		return cfg.APIKeyEnv
	}
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	}
	return ""
}

func providerAPIKey(provider string, cfg config.StrategyConfig) string {
	if name := keyEnvName(provider, cfg); name != "" {
		return os.Getenv(name)
	}
	return ""
}
