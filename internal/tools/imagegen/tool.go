package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/atelier/internal/agent"
)

// Options configures the image tools shared by generation and editing.
type Options struct {
	Client        *Client
	GenerateModel string
	EditModel     string
	StorageDir    string
	PublicBase    string // URL prefix the server serves StorageDir under, e.g. "/storage/images"
	Logger        *slog.Logger
}

type toolResult struct {
	ImageURL    string   `json:"image_url,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	OriginalURL string   `json:"original_url,omitempty"`
	LocalPath   string   `json:"local_path,omitempty"`
	LocalPaths  []string `json:"local_paths,omitempty"`
	Prompt      string   `json:"prompt"`
	Provider    string   `json:"provider"`
	Message     string   `json:"message"`
}

// GenerateTool produces new images from a text prompt.
type GenerateTool struct {
	opts Options
}

// NewGenerateTool returns the generate_image tool.
func NewGenerateTool(opts Options) *GenerateTool {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = opts.Logger.With("component", "imagegen")
	return &GenerateTool{opts: opts}
}

func (t *GenerateTool) Name() string { return "generate_image" }

func (t *GenerateTool) Description() string {
	return "Generate one or more images from a text prompt. Returns URLs the user can view immediately."
}

func (t *GenerateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {"type": "string", "description": "Detailed description of the image to generate"},
			"size": {"type": "string", "description": "Resolution preset (1K, 2K, 4K), aspect ratio (16:9, 1:1, ...) or explicit WxH"},
			"n": {"type": "integer", "minimum": 1, "maximum": 4, "description": "Number of images to generate"}
		},
		"required": ["prompt"]
	}`)
}

type generateParams struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

func (t *GenerateTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var p generateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &agent.ToolOutput{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return &agent.ToolOutput{Content: "prompt is required", IsError: true}, nil
	}

	req := GenerationRequest{
		Model:  t.opts.GenerateModel,
		Prompt: p.Prompt,
		Size:   ParseSize(p.Size),
		N:      p.N,
	}
	return runGeneration(ctx, t.opts, req, p.Prompt)
}

// EditTool modifies an existing generated image guided by a prompt.
type EditTool struct {
	opts Options
}

// NewEditTool returns the edit_image tool.
func NewEditTool(opts Options) *EditTool {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = opts.Logger.With("component", "imagegen")
	return &EditTool{opts: opts}
}

func (t *EditTool) Name() string { return "edit_image" }

func (t *EditTool) Description() string {
	return "Edit a previously generated image using a text instruction. The image must be a local storage path or URL from an earlier generation."
}

func (t *EditTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {"type": "string", "description": "Instruction describing the edit to apply"},
			"image": {"type": "string", "description": "Storage path or URL of the source image"},
			"size": {"type": "string", "description": "Output resolution preset, aspect ratio, or WxH"}
		},
		"required": ["prompt", "image"]
	}`)
}

type editParams struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
	Size   string `json:"size"`
}

func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolOutput, error) {
	var p editParams
	if err := json.Unmarshal(params, &p); err != nil {
		return &agent.ToolOutput{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(p.Prompt) == "" || strings.TrimSpace(p.Image) == "" {
		return &agent.ToolOutput{Content: "prompt and image are required", IsError: true}, nil
	}

	input, err := t.prepareImageInput(p.Image)
	if err != nil {
		return &agent.ToolOutput{Content: err.Error(), IsError: true}, nil
	}

	req := GenerationRequest{
		Model:  t.opts.EditModel,
		Prompt: p.Prompt,
		Image:  input,
		Size:   ParseSize(p.Size),
	}
	return runGeneration(ctx, t.opts, req, p.Prompt)
}

// prepareImageInput resolves a user-supplied image reference into a
// base64 data URI the provider accepts. Only images this server stored
// are eligible; arbitrary public URLs are refused so the tool cannot be
// used to exfiltrate or fetch remote content.
func (t *EditTool) prepareImageInput(ref string) (string, error) {
	path, err := t.localPath(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source image: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (t *EditTool) localPath(ref string) (string, error) {
	raw := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return "", fmt.Errorf("only locally stored images can be edited; got host %q", host)
		}
		raw = u.Path
	}
	base := strings.TrimSuffix(t.opts.PublicBase, "/")
	if base != "" && strings.HasPrefix(raw, base+"/") {
		raw = strings.TrimPrefix(raw, base+"/")
	}
	name := filepath.Base(filepath.Clean(raw))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}
	path := filepath.Join(t.opts.StorageDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("image %q not found in storage", name)
	}
	return path, nil
}

func runGeneration(ctx context.Context, opts Options, req GenerationRequest, prompt string) (*agent.ToolOutput, error) {
	urls, err := opts.Client.Generate(ctx, req)
	if err != nil {
		opts.Logger.Error("image generation failed", "model", req.Model, "error", err)
		return &agent.ToolOutput{Content: fmt.Sprintf("image generation failed: %v", err), IsError: true}, nil
	}

	result := toolResult{
		Prompt:   prompt,
		Provider: req.Model,
	}
	for _, remote := range urls {
		data, err := opts.Client.Download(ctx, remote)
		if err != nil {
			opts.Logger.Warn("image download failed, returning provider URL", "error", err)
			result.ImageURLs = append(result.ImageURLs, remote)
			continue
		}
		name, err := SaveImage(opts.StorageDir, prompt, data)
		if err != nil {
			opts.Logger.Warn("image save failed, returning provider URL", "error", err)
			result.ImageURLs = append(result.ImageURLs, remote)
			continue
		}
		local := strings.TrimSuffix(opts.PublicBase, "/") + "/" + name
		result.ImageURLs = append(result.ImageURLs, local)
		result.LocalPaths = append(result.LocalPaths, local)
		if result.OriginalURL == "" {
			result.OriginalURL = remote
		}
	}

	if len(result.ImageURLs) == 1 {
		result.ImageURL = result.ImageURLs[0]
		result.ImageURLs = nil
	}
	if len(result.LocalPaths) == 1 {
		result.LocalPath = result.LocalPaths[0]
		result.LocalPaths = nil
	}
	switch {
	case result.ImageURL != "":
		result.Message = "Image generated successfully"
	case len(result.ImageURLs) > 0:
		result.Message = fmt.Sprintf("%d images generated successfully", len(result.ImageURLs))
	default:
		return &agent.ToolOutput{Content: "provider returned no images", IsError: true}, nil
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &agent.ToolOutput{Content: string(out)}, nil
}
