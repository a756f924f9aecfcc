// Command execution for CLI commands.
//
// Information Hiding:
// - Runtime assembly (providers, surfaces, tools, engine) hidden
// - Session persistence wiring hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/argus/config"
	"github.com/richinex/argus/conversation"
	"github.com/richinex/argus/engine"
	"github.com/richinex/argus/llm"
	"github.com/richinex/argus/logging"
	"github.com/richinex/argus/model"
	"github.com/richinex/argus/storage"
	"github.com/richinex/argus/surface"
	"github.com/richinex/argus/tools"
	"github.com/richinex/argus/vision"
)

// Options holds CLI execution options. Zero values defer to the loaded
// configuration.
type Options struct {
	ConfigFile string
	Provider   string
	Model      string
	MaxIter    int
	Device     string
	Session    string
	Verbose    bool
}

// runtime is one fully wired agent stack.
type runtime struct {
	settings *config.Settings
	logger   *zap.Logger
	registry *tools.Registry
	log      *conversation.Log
	engine   *engine.Engine
	store    storage.ConversationStorage
	closers  []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}

// newRuntime assembles the full stack from configuration plus CLI
// overrides. withStorage controls whether a persistence backend opens.
func newRuntime(opts Options, withStorage bool) (*runtime, error) {
	settings, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(settings, opts)

	logger := logging.New(settings.Log)

	reasoner, err := reasoningProvider(settings)
	if err != nil {
		return nil, err
	}
	visionModel, err := visionProvider(settings)
	if err != nil {
		return nil, err
	}

	adb := surface.NewADB(settings.Surface.ADBPath)
	desktop := surface.NewDesktopDriver(settings.Surface.CaptureBin, settings.Surface.InputBin)
	mux := surface.NewMux(desktop, adb)

	visionAgent := vision.NewAgent(visionModel, mux, mux, vision.Config{
		MaxSteps:         settings.Vision.MaxSteps,
		ParseRetries:     settings.Vision.ParseRetries,
		TranscriptWindow: settings.Vision.TranscriptWindow,
		SettleDelay:      settings.Vision.SettleDelay,
	}, logger.Named("vision"))

	registry := tools.NewRegistry()
	// Names are unique in this list, Register cannot fail.
	_ = registry.Register(tools.NewCaptureScreenTool(mux))
	_ = registry.Register(tools.NewCaptureMobileScreenTool(mux, settings.Surface.DeviceSerial))
	_ = registry.Register(tools.NewReadFileTool(tools.DefaultMaxFileSize))
	_ = registry.Register(tools.NewWriteFileTool(tools.DefaultMaxFileSize))
	_ = registry.Register(tools.NewFetchURLTool(tools.DefaultFetchTimeout))
	_ = registry.Register(tools.NewWaitTool())
	_ = registry.Register(vision.NewHandoffTool(visionAgent, settings.Surface.DeviceSerial))

	log := conversation.NewLog(settings.Conversation.ImageRetention, settings.Conversation.TokenBudget)

	eng := engine.New(reasoner, registry, log, engine.Config{
		MaxIterations: settings.Engine.MaxIterations,
		ModelRetries:  settings.Engine.ModelRetries,
		ParseRetries:  settings.Engine.ParseRetries,
		Deadline:      settings.Engine.Deadline,
	}, logger.Named("engine"))

	rt := &runtime{
		settings: settings,
		logger:   logger,
		registry: registry,
		log:      log,
		engine:   eng,
	}

	if withStorage {
		store, closer, err := openStorage(settings.Storage)
		if err != nil {
			return nil, err
		}
		rt.store = store
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}
	return rt, nil
}

func applyOverrides(settings *config.Settings, opts Options) {
	if opts.Provider != "" {
		settings.Provider.Name = opts.Provider
	}
	if opts.Model != "" {
		settings.Provider.Model = opts.Model
	}
	if opts.MaxIter > 0 {
		settings.Engine.MaxIterations = opts.MaxIter
	}
	if opts.Device != "" {
		settings.Surface.DeviceSerial = opts.Device
	}
	if opts.Verbose {
		settings.Log.Level = "debug"
	}
}

func reasoningProvider(settings *config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.Provider.Name)
	if err != nil {
		return nil, err
	}
	builder := llm.NewProviderBuilder(providerType).
		Model(settings.Provider.Model).
		MaxTokens(settings.Provider.MaxTokens).
		Temperature(settings.Provider.Temperature)
	if settings.Provider.BaseURL != "" {
		builder = builder.BaseURL(settings.Provider.BaseURL)
	}
	return builder.FromEnv()
}

// visionProvider builds the grounded-UI model client. The vision
// endpoint is always OpenAI-compatible; HF_TOKEN works as a key for the
// default HuggingFace router.
func visionProvider(settings *config.Settings) (llm.Provider, error) {
	builder := llm.ProviderCompat.
		Model(settings.Provider.VisionModel).
		BaseURL(settings.Provider.VisionBaseURL).
		MaxTokens(settings.Provider.MaxTokens).
		Temperature(settings.Provider.Temperature)
	if key := os.Getenv("HF_TOKEN"); key != "" {
		return builder.APIKey(key)
	}
	return builder.FromEnv()
}

func openStorage(cfg config.StorageSettings) (storage.ConversationStorage, func(), error) {
	if cfg.Backend == "sqlite" {
		store, err := storage.OpenSqlite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	return storage.NewInMemoryStorage(), nil, nil
}

// Run executes a single goal to completion.
func Run(ctx context.Context, goal string, opts Options) error {
	rt, err := newRuntime(opts, false)
	if err != nil {
		return err
	}
	defer rt.close()

	fmt.Printf("Running goal...\n\n")

	result := rt.engine.Run(ctx, goal)
	return report(result, opts.Verbose)
}

// Chat starts an interactive session. History survives across inputs
// within the session; with --session it also survives across processes.
func Chat(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts, opts.Session != "")
	if err != nil {
		return err
	}
	defer rt.close()

	session := opts.Session
	if rt.store != nil {
		turns, err := rt.store.Load(ctx, session)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(turns) > 0 {
			rt.log.Restore(turns)
			fmt.Printf("Resuming session '%s' (%d turns)\n\n", session, len(turns))
		}
	}

	fmt.Printf("Chat with Argus. Type 'exit' to quit.\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		result := rt.engine.Run(ctx, input)
		if result.State == engine.StateDone {
			if opts.Verbose {
				printSteps(result.Steps)
			}
			fmt.Printf("\n%s\n\n", result.FinalAnswer)
		} else {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", result.Err)
		}

		if rt.store != nil {
			if err := rt.store.Save(ctx, session, result.Turns); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
			}
		}
	}

	return scanner.Err()
}

// DryRun validates configuration and prints what a run would use,
// without contacting any provider or device.
func DryRun(opts Options) error {
	settings, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	applyOverrides(settings, opts)

	fmt.Printf("Provider: %s (model %q, vision model %s)\n",
		settings.Provider.Name, settings.Provider.Model, settings.Provider.VisionModel)
	fmt.Printf("Engine: max %d iterations, %d model retries, deadline %s\n",
		settings.Engine.MaxIterations, settings.Engine.ModelRetries, settings.Engine.Deadline)
	fmt.Printf("Conversation: %d retained images, token budget %d\n",
		settings.Conversation.ImageRetention, settings.Conversation.TokenBudget)
	fmt.Printf("Surface: adb=%s device=%q capture=%s input=%s\n",
		settings.Surface.ADBPath, settings.Surface.DeviceSerial,
		settings.Surface.CaptureBin, settings.Surface.InputBin)
	fmt.Println()

	ListTools(opts.Verbose)
	return nil
}

// ListTools lists all available tools. Handlers are never invoked, so
// the registry is built without live providers or devices.
func ListTools(verbose bool) {
	mux := surface.NewMux(nil, nil)

	registry := tools.NewRegistry()
	_ = registry.Register(tools.NewCaptureScreenTool(mux))
	_ = registry.Register(tools.NewCaptureMobileScreenTool(mux, ""))
	_ = registry.Register(tools.NewReadFileTool(tools.DefaultMaxFileSize))
	_ = registry.Register(tools.NewWriteFileTool(tools.DefaultMaxFileSize))
	_ = registry.Register(tools.NewFetchURLTool(tools.DefaultFetchTimeout))
	_ = registry.Register(tools.NewWaitTool())
	_ = registry.Register(vision.NewHandoffTool(nil, ""))

	fmt.Println("Available tools:")
	fmt.Println()

	for _, def := range registry.List() {
		fmt.Printf("  %s\n", def.Name)
		fmt.Printf("    %s\n", def.Description)

		if verbose && len(def.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, param := range def.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Printf("      %s%s: %s - %s\n", param.Name, req, param.Type, param.Description)
			}
		}
		fmt.Println()
	}
}

func report(result engine.Result, verbose bool) error {
	if verbose {
		printSteps(result.Steps)
	}

	switch result.State {
	case engine.StateDone:
		fmt.Printf("%s\n\n", result.FinalAnswer)
		printStats(result)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		printStats(result)
		return fmt.Errorf("goal failed: %w", result.Err)
	}
}

const maxObservationLen = 400

func printSteps(steps []model.Step) {
	fmt.Println("--- Steps ---")
	for _, step := range steps {
		fmt.Printf("[%d] %s\n", step.Iteration, step.Thought)
		if step.Action != nil {
			fmt.Printf("    Action: %s\n", *step.Action)
		}
		if step.Observation != nil {
			fmt.Printf("    Observation: %s\n", truncateString(*step.Observation, maxObservationLen))
		}
		fmt.Println()
	}
	fmt.Println("-------------")
	fmt.Println()
}

func printStats(result engine.Result) {
	fmt.Printf("Completed in %d iterations (%dms)\n", result.Iterations, result.DurationMs)
	if result.Usage.TotalTokens > 0 {
		fmt.Printf("\nToken Usage:\n")
		fmt.Printf("  Prompt tokens: %d\n", result.Usage.PromptTokens)
		fmt.Printf("  Completion tokens: %d\n", result.Usage.CompletionTokens)
		fmt.Printf("  Total tokens: %d\n", result.Usage.TotalTokens)
	}
	if len(result.ToolStats) > 0 {
		fmt.Printf("\nTool Calls:\n")
		for _, ts := range result.ToolStats {
			status := "ok"
			if !ts.Success {
				status = "failed"
			}
			fmt.Printf("  %s: %s (%dms)\n", ts.Name, status, ts.DurationMs)
		}
	}
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
