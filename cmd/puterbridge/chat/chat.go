// Package chatcmder provides a chat client for a running bridge.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/config"
	"github.com/papercomputeco/puterbridge/pkg/llm"
	"github.com/papercomputeco/puterbridge/pkg/logger"
	"github.com/papercomputeco/puterbridge/pkg/sse"
)

type chatCommander struct {
	target string
	model  string
	debug  bool
	raw    bool

	in     io.Reader
	out    io.Writer
	rawOut io.Writer
	client *http.Client
	logger *zap.Logger
}

const chatLongDesc string = `Chat with a model through a running bridge.

With a prompt argument the reply is streamed once and the command exits.
Without one an interactive session starts; the conversation history is
kept for the session only.

Examples:
  puterbridge chat "write a haiku about pipes"
  puterbridge chat --model claude-3-5-sonnet
  puterbridge chat --raw "hello" 2>stream.sse
  puterbridge chat --target http://localhost:9000`

const chatShortDesc string = "Chat through a running bridge"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(cmd, config.FlagTarget)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.target = cfg.Client.Target
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			if cmder.raw {
				cmder.rawOut = cmd.ErrOrStderr()
			}
			cmder.logger = logger.NewLogger(cmder.debug)
			defer func() { _ = cmder.logger.Sync() }()

			if len(args) > 0 {
				_, err := cmder.send(cmd.Context(), []llm.Message{
					llm.NewTextMessage("user", strings.Join(args, " ")),
				})
				fmt.Fprintln(cmder.out)
				return err
			}
			return cmder.interactive(cmd.Context())
		},
	}

	var target string
	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &target)
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model name (default: the bridge's default chat model)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Copy the raw SSE stream to stderr")

	return cmd
}

func (c *chatCommander) interactive(ctx context.Context) error {
	fmt.Fprintf(c.out, "Chatting via %s. /exit or Ctrl+D to quit.\n\n", c.target)

	var messages []llm.Message
	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, "you> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages = append(messages, llm.NewTextMessage("user", input))

		fmt.Fprint(c.out, "assistant> ")
		reply, err := c.send(ctx, messages)
		fmt.Fprintln(c.out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			messages = messages[:len(messages)-1]
			continue
		}

		messages = append(messages, llm.NewTextMessage("assistant", reply))
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// send streams one completion, printing deltas as they arrive, and returns
// the full reply.
func (c *chatCommander) send(ctx context.Context, messages []llm.Message) (string, error) {
	body, err := json.Marshal(llm.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("target", c.target),
		zap.String("model", c.model),
		zap.Int("message_count", len(messages)),
	)

	url := strings.TrimRight(c.target, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request to bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readErrorResponse(resp)
	}

	var reply strings.Builder
	reader := sse.NewTeeReader(resp.Body, c.rawOut)

	for {
		ev, err := reader.Next()
		if err != nil {
			return reply.String(), fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return reply.String(), errors.New("stream ended without [DONE]")
		}
		if ev.IsDone() {
			return reply.String(), nil
		}

		var streamErr llm.StreamError
		if err := json.Unmarshal([]byte(ev.Data), &streamErr); err == nil && streamErr.Error != "" {
			return reply.String(), fmt.Errorf("bridge: %s", streamErr.Error)
		}

		var chunk llm.ChatCompletionChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			c.logger.Debug("failed to parse stream chunk",
				zap.Error(err),
				zap.String("data", ev.Data),
			)
			continue
		}

		text := chunk.Text()
		fmt.Fprint(c.out, text)
		reply.WriteString(text)
	}
}

func (c *chatCommander) httpClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func readErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var errResp llm.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, errResp.Error.Message)
	}
	return fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
