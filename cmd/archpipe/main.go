package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/archpipe"
	"github.com/hupe1980/archpipe/artifact"
	"github.com/hupe1980/archpipe/config"
	"github.com/hupe1980/archpipe/logging"
	"github.com/hupe1980/archpipe/role"
	"github.com/hupe1980/archpipe/stream"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var configFile string

const rule = "============================================================"

func main() {
	rootCmd := &cobra.Command{
		Use:   "archpipe",
		Short: "Architecture review pipeline driven by role-specialized agents",
		Long: `ArchPipe reviews an architecture description (plain text or a diagram
image) through a fixed sequence of specialized agents: a critic finds
weaknesses, a fixer produces a corrected description, a visualizer renders a
Mermaid diagram and an IaC generator emits Bicep templates. Grounded stages
consult Microsoft Learn while they work.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		textFlag      string
		imageFlag     string
		providerFlag  string
		modelFlag     string
		baseURLFlag   string
		outputDirFlag string
		rolesFileFlag string
		quietFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the review pipeline against an architecture description",
		Long: `Runs the full stage sequence against an architecture description.

The description comes from --text, --image (a local diagram path or an
http(s) URL) or the ARCHPIPE_* environment; without any of those a built-in
demo architecture is reviewed. Stage output streams to stdout as the agents
produce it and is saved one file per stage under the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFlag != "" && imageFlag != "" {
				return fmt.Errorf("--text and --image are mutually exclusive")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			// Flags override environment and file settings.
			if providerFlag != "" {
				cfg.Provider = providerFlag
			}
			if modelFlag != "" {
				cfg.Model = modelFlag
			}
			if baseURLFlag != "" {
				cfg.BaseURL = baseURLFlag
			}
			if outputDirFlag != "" {
				cfg.OutputDir = outputDirFlag
			}
			if rolesFileFlag != "" {
				cfg.RolesFile = rolesFileFlag
			}
			if textFlag != "" {
				cfg.UseImage = false
				cfg.DefaultText = textFlag
			}
			if imageFlag != "" {
				cfg.UseImage = true
				cfg.ImageSource = imageFlag
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			llm, err := cfg.BuildModel(ctx)
			if err != nil {
				return err
			}

			registry, err := cfg.Registry()
			if err != nil {
				return err
			}

			logger := logging.Logger(logging.NoOpLogger{})
			sink := stream.Sink(stream.Discard)
			if !quietFlag {
				logger = logging.NewSlogLoggerWithOutput(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, false, os.Stderr)
				sink = stream.NewWriterSink(os.Stdout)
			}

			in := cfg.Input()
			total := len(role.Sequence(in.RequiresInterpretation()))

			p := archpipe.New(llm, func(o *archpipe.Options) {
				o.Registry = registry
				o.Store = artifact.NewFileStore(cfg.OutputDir)
				o.Sink = sink
				o.Grounding = cfg.GroundingOpener()
				o.Logger = logger
				if !quietFlag {
					o.OnStageStart = func(id role.Role, index int) {
						fmt.Printf("\n%s\n[%d/%d] %s\n%s\n", rule, index+1, total, stageLabel(id), rule)
					}
				}
			})

			fmt.Fprintf(os.Stderr, "Reviewing with %s/%s\n", llm.Info().Provider, llm.Info().Name)

			run, err := p.Run(ctx, in)
			if err != nil {
				if run != nil && len(run.Results) > 0 {
					fmt.Fprintf(os.Stderr, "\nCompleted %d of %d stages before the failure; partial output is under %s\n",
						len(run.Results), total, runDir(cfg.OutputDir, run.ID))
				}
				return err
			}

			fmt.Printf("\n%s\nPipeline complete (run %s)\n%s\n", rule, run.ID, rule)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STAGE\tCHARS\tSAVED TO")
			for _, res := range run.Results {
				fmt.Fprintf(w, "%s\t%d\t%s\n", res.Role, len(res.Text), res.Location)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&textFlag, "text", "", "architecture description to review")
	cmd.Flags().StringVar(&imageFlag, "image", "", "architecture diagram to review (file path or http(s) URL)")
	cmd.Flags().StringVar(&providerFlag, "provider", "", "completion provider (see 'archpipe providers')")
	cmd.Flags().StringVar(&modelFlag, "model", "", "override the provider's default model")
	cmd.Flags().StringVar(&baseURLFlag, "base-url", "", "endpoint for openai-compatible providers")
	cmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "directory stage outputs are saved under")
	cmd.Flags().StringVar(&rolesFileFlag, "roles-file", "", "YAML file overriding the built-in role briefs")
	cmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress streaming, banners and logs; print only the summary")

	return cmd
}

func rolesCmd() *cobra.Command {
	var rolesFileFlag string

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Show the role briefs driving each stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if rolesFileFlag != "" {
				cfg.RolesFile = rolesFileFlag
			}

			registry, err := cfg.Registry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tGROUNDED\tBRIEF")
			for _, spec := range registry.Roles() {
				fmt.Fprintf(w, "%s\t%t\t%s\n", spec.ID, spec.UsesGrounding, excerpt(spec.Instructions, 72))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&rolesFileFlag, "roles-file", "", "YAML file overriding the built-in role briefs")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List recognized completion providers",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.Providers() {
				fmt.Println(name)
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the archpipe version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func stageLabel(id role.Role) string {
	switch id {
	case role.Interpreter:
		return "Diagram Interpreter (image to text)"
	case role.Critic:
		return "Architecture Critic"
	case role.Fixer:
		return "Architecture Fixer"
	case role.Visualizer:
		return "Diagram Visualizer (Mermaid)"
	case role.IaCGenerator:
		return "IaC Generator (Bicep)"
	default:
		return id.String()
	}
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func runDir(outputDir, runID string) string {
	if outputDir == "" {
		outputDir = artifact.DefaultRoot
	}
	return filepath.Join(outputDir, runID)
}
