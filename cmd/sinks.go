package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/coal/siterisk/internal/policy"
	"github.com/coal/siterisk/internal/sink"
)

// buildSinks assembles the file outputs requested on the command line and
// the dispatch target configured in the policy. It returns nil when no
// output is configured.
func buildSinks(pol *policy.Policy, jsonPath, csvDir string, logger zerolog.Logger) (sink.ResultSink, error) {
	var sinks []sink.ResultSink
	if jsonPath != "" {
		sinks = append(sinks, sink.NewJSONFileSink(jsonPath))
	}
	if csvDir != "" {
		sinks = append(sinks, sink.NewCSVSink(csvDir))
	}

	if pol.Dispatch.Method == policy.MethodWebhook {
		var token string
		if pol.Dispatch.TokenEnv != "" {
			token = os.Getenv(pol.Dispatch.TokenEnv)
			if token == "" {
				logger.Warn().Str("env", pol.Dispatch.TokenEnv).Msg("webhook token variable is empty")
			}
		}
		hook, err := sink.NewWebhookSink(sink.WebhookOptions{
			URL:       pol.Dispatch.URL,
			Token:     token,
			Trigger:   pol.Dispatch.Trigger,
			Payload:   pol.Dispatch.Payload,
			Timeout:   pol.Dispatch.Timeout,
			UserAgent: "siterisk/" + Version,
		})
		if err != nil {
			return nil, fmt.Errorf("creating webhook sink: %w", err)
		}
		sinks = append(sinks, hook)
		logger.Info().Str("url", pol.Dispatch.URL).Str("trigger", pol.Dispatch.Trigger).Msg("report dispatch enabled")
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return sink.NewMulti(sinks...), nil
}
