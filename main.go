package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/linweiyuan/go-logger/logger"
	"github.com/spf13/cobra"

	"github.com/maxduke/go-deepseek-api/api/deepseek"
	"github.com/maxduke/go-deepseek-api/api/imitate"
	"github.com/maxduke/go-deepseek-api/config"
	"github.com/maxduke/go-deepseek-api/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type chatOptions struct {
	stream   bool
	search   bool
	thinking bool
	system   string
	token    string
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "go-deepseek-api",
		Short:         "DeepSeek web chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an OpenAI-compatible chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			router := gin.Default()
			imitate.NewHandler(deepseek.NewClient(cfg), cfg.ImitateAPIKey).Register(router)

			logger.Info("listening on " + cfg.ListenAddr)
			return router.Run(cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LISTEN_ADDR)")
	return cmd
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send one prompt and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if text == "" {
				return fmt.Errorf("no prompt provided")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), deepseek.NewClient(cfg), cmd.OutOrStdout(), buildMessages(opts.system, text), *opts)
		},
	}
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print fragments as they arrive")
	cmd.Flags().BoolVar(&opts.search, "search", false, "Enable web search")
	cmd.Flags().BoolVar(&opts.thinking, "thinking", false, "Enable deep thinking")
	cmd.Flags().StringVar(&opts.system, "system", "", "System prompt")
	cmd.Flags().StringVar(&opts.token, "token", "", "DeepSeek token (default DEEPSEEK_TOKEN)")
	return cmd
}

func runChat(ctx context.Context, client imitate.Completer, out io.Writer, messages []prompt.Message, opts chatOptions) error {
	callOpts := deepseek.Options{
		SearchEnabled:   opts.search,
		ThinkingEnabled: opts.thinking,
		Token:           opts.token,
	}

	if !opts.stream {
		text, err := client.Completion(ctx, messages, callOpts)
		if text != "" {
			fmt.Fprintln(out, text)
		}
		return err
	}

	stream, err := client.CompletionStream(ctx, messages, callOpts)
	if err != nil {
		return err
	}
	defer stream.Close()
	for stream.Next() {
		fmt.Fprint(out, stream.Text())
	}
	fmt.Fprintln(out)
	return stream.Err()
}

func buildMessages(system, text string) []prompt.Message {
	var messages []prompt.Message
	if system != "" {
		messages = append(messages, prompt.Message{Role: prompt.RoleSystem, Content: system})
	}
	return append(messages, prompt.Message{Role: prompt.RoleUser, Content: text})
}

// readPrompt joins args with piped stdin. Stdin comes first when both are given.
func readPrompt(in io.Reader, args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if f, ok := in.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return text, err
		}
		if fi.Mode()&os.ModeNamedPipe == 0 && !fi.Mode().IsRegular() {
			return text, nil
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return text, err
	}
	piped := strings.TrimSpace(string(b))
	switch {
	case piped == "":
		return text, nil
	case text == "":
		return piped, nil
	default:
		return piped + "\n\n" + text, nil
	}
}
