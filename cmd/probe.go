package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"apimon/internal/features/monitor/models"
	"apimon/internal/features/monitor/probe"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("check did not succeed")

type probeOptions struct {
	url       string
	method    string
	expect    int
	timeout   time.Duration
	headers   []string
	userAgent string
}

var probeOpts probeOptions

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check one endpoint once and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.Context(), cmd.OutOrStdout(), probeOpts)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeOpts.url, "url", "", "endpoint URL (required)")
	probeCmd.Flags().StringVar(&probeOpts.method, "method", "GET", "HTTP method")
	probeCmd.Flags().IntVar(&probeOpts.expect, "expect", models.DefaultExpectedStatusCode, "expected status code")
	probeCmd.Flags().DurationVar(&probeOpts.timeout, "timeout", 10*time.Second, "request timeout")
	probeCmd.Flags().StringSliceVarP(&probeOpts.headers, "header", "H", nil, `request header as "Name: value", repeatable`)
	probeCmd.Flags().StringVar(&probeOpts.userAgent, "user-agent", "apimon/1.0", "User-Agent header")
	probeCmd.MarkFlagRequired("url")
}

func runProbe(ctx context.Context, out io.Writer, opts probeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	headers := make(map[string]string, len(opts.headers))
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	endpoint := models.EndpointCreate{
		Name:               opts.url,
		URL:                opts.url,
		Method:             opts.method,
		ExpectedStatusCode: opts.expect,
		Headers:            headers,
		TimeoutMs:          opts.timeout.Milliseconds(),
	}.ToEndpoint(uuid.NewString(), time.Now(), models.Defaults{Timeout: opts.timeout, Interval: time.Minute})

	if err := endpoint.Validate(); err != nil {
		return err
	}

	result := probe.NewHTTPProber(nil, opts.userAgent).Execute(ctx, endpoint)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if !result.Succeeded() {
		return errCheckFailed
	}
	return nil
}
