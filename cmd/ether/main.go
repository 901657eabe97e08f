package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ether/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ether",
	Short: "Ether - context-aware conversational assistant",
	Long: `Ether is a local conversational assistant that enriches messages with
real-time context (web search, weather, news) before calling the model,
and keeps a durable, scored log of every exchange.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if cfg, err := config.Load(configPath); err == nil {
			if cfg.Logging.Format == "text" {
				zcfg.Encoding = "console"
			}
			if level, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
				zcfg.Level = zap.NewAtomicLevelAt(level)
			}
		}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

// chatCmd starts the interactive chat loop.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

// runCmd submits a single message and prints the response.
var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Submit a single message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assistant, cleanup, err := buildAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		conversation, _ := cmd.Flags().GetString("conversation")
		turn, err := assistant.SubmitMessage(cmd.Context(), conversation, strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Println(turn.ModelResponse)
		fmt.Fprintf(os.Stderr, "[turn %d | conversation %s | quality %.2f]\n",
			turn.ID, turn.ConversationID, turn.QualityScore)
		return nil
	},
}

// historyCmd prints stored turns of a conversation.
var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show the stored turns of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assistant, cleanup, err := buildAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		turns, err := assistant.GetHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			fmt.Println("no turns recorded")
			return nil
		}

		for _, t := range turns {
			fmt.Printf("--- turn %d (%s, quality %.2f) ---\n",
				t.ID, t.Timestamp.Local().Format(time.RFC822), t.QualityScore)
			fmt.Printf("you:   %s\n", t.UserMessage)
			fmt.Printf("ether: %s\n", t.ModelResponse)
			if len(t.EnrichmentSources) > 0 {
				fmt.Printf("       [enriched via %v]\n", t.EnrichmentSources)
			}
		}
		return nil
	},
}

// statsCmd prints an analytics report.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show conversation analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		assistant, cleanup, err := buildAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		conversation, _ := cmd.Flags().GetString("conversation")
		report, err := assistant.GetAnalytics(cmd.Context(), conversation)
		if err != nil {
			return err
		}

		scope := "all conversations"
		if conversation != "" {
			scope = "conversation " + conversation
		}
		fmt.Printf("Analytics (%s)\n", scope)
		fmt.Printf("  turns:            %d\n", report.TurnCount)
		fmt.Printf("  mean quality:     %.3f\n", report.MeanQuality)
		fmt.Printf("  median quality:   %.3f\n", report.MedianQuality)
		fmt.Printf("  mean latency:     %.0f ms\n", report.MeanLatencyMs)
		fmt.Printf("  max latency:      %d ms\n", report.MaxLatencyMs)
		fmt.Printf("  total tokens:     %d (prompt %d, response %d)\n",
			report.TotalTokens, report.TotalPromptTokens, report.TotalResponseTokens)
		fmt.Printf("  enrichment rate:  %.0f%%\n", report.EnrichmentRate*100)
		for src, count := range report.SourceUsage {
			fmt.Printf("    %-8s %d\n", src, count)
		}
		return nil
	},
}

// feedbackCmd records a rating for a turn.
var feedbackCmd = &cobra.Command{
	Use:   "feedback [turn-id] [rating]",
	Short: "Rate a stored response (1-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		turnID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid turn id %q", args[0])
		}
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid rating %q", args[1])
		}
		comment, _ := cmd.Flags().GetString("comment")

		assistant, cleanup, err := buildAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := assistant.SubmitFeedback(cmd.Context(), turnID, rating, comment)
		if err != nil {
			return err
		}
		fmt.Printf("recorded feedback %d for turn %d (rating %d)\n", rec.ID, rec.TurnID, rec.Rating)
		return nil
	},
}

// purgeCmd deletes a conversation and its feedback.
var purgeCmd = &cobra.Command{
	Use:   "purge [conversation-id]",
	Short: "Delete a conversation and its feedback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assistant, cleanup, err := buildAssistant(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := assistant.PurgeConversation(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("purged conversation %s\n", args[0])
		return nil
	},
}

// configCmd writes the default configuration to disk.
var configCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configPath)
		return nil
	},
}

// runChat is the interactive REPL.
func runChat(ctx context.Context) error {
	assistant, cleanup, err := buildAssistant(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	conversation := ""
	fmt.Println("Ether chat. Type a message, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		turn, err := assistant.SubmitMessage(ctx, conversation, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		conversation = turn.ConversationID

		fmt.Println(turn.ModelResponse)
		if len(turn.EnrichmentSources) > 0 {
			fmt.Printf("[context: %v | quality %.2f]\n", turn.EnrichmentSources, turn.QualityScore)
		}
	}
	return scanner.Err()
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config file")
	runCmd.Flags().String("conversation", "", "conversation to continue")
	statsCmd.Flags().String("conversation", "", "limit the report to one conversation")
	feedbackCmd.Flags().String("comment", "", "optional comment")

	rootCmd.AddCommand(chatCmd, runCmd, historyCmd, statsCmd, feedbackCmd, purgeCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ether.yaml"
	}
	return home + "/.ether/config.yaml"
}
