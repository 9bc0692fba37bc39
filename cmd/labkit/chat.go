package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/labkit/internal/logger"
)

func runChat(ctx context.Context, args []string) error {
	var envFile, model string
	var maxRetries int
	fs := newFlagSet("chat", &envFile)
	fs.StringVar(&model, "model", "", "model id on the gateway, e.g. openai/gpt-4o-mini (default gateway.default_model)")
	fs.IntVar(&maxRetries, "max-retries", -1, "retry budget; negative uses gateway.max_retries, 0 disables retries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" || prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt is required (arguments or stdin)")
	}

	a, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()
	defer a.serveMetrics()()

	log := logpkg.Component(a.logger, "chat")
	svc := newChatService(a.cfg.Gateway, log)

	out, err := svc.Complete(logpkg.ContextWithLogger(ctx, log), model, prompt, maxRetries)
	if err != nil {
		log.Error("chat_failed", zap.String("model", model), zap.Error(err))
		return err
	}

	fmt.Println(out.Content)
	log.Info("chat_usage",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
	)
	return nil
}
