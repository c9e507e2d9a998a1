package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drblury/replyweaver/codec"
	"github.com/drblury/replyweaver/config"
	"github.com/drblury/replyweaver/jsonutil"
	"github.com/drblury/replyweaver/metrics"
	"github.com/drblury/replyweaver/responder"
)

type encodeOptions struct {
	format      string
	status      int
	message     string
	showHeaders bool
	vendor      string
}

func newEncodeCmd(root *rootOptions) *cobra.Command {
	opts := &encodeOptions{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON document from stdin as a response body",
		Long: `Reads one JSON document from stdin and writes the response body to stdout.

Formats: envelope (default), json, jsonlines, msgpack, csv, form, bson, text.
The envelope format wraps the document as response data; a failing --status
turns it into a problem document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.vendor = cfg.Tracing.Vendor
			return runEncode(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "envelope", "Output format")
	cmd.Flags().IntVar(&opts.status, "status", http.StatusOK, "HTTP status of the response")
	cmd.Flags().StringVar(&opts.message, "message", "", "Message (success) or detail (failure) text")
	cmd.Flags().BoolVar(&opts.showHeaders, "headers", false, "Print the response headers before the body")
	return cmd
}

func runEncode(in io.Reader, out io.Writer, opts *encodeOptions) error {
	if opts.status < 100 || opts.status > 999 {
		return fmt.Errorf("status %d out of range", opts.status)
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	res := responder.New(responder.StatusCode(opts.status))
	res.SetMetricsSink(metrics.Noop{})
	res.SetTraceVendor(opts.vendor)
	if opts.message != "" {
		res.SetMessage(opts.message)
	}

	format := strings.ToLower(strings.TrimSpace(opts.format))
	switch format {
	case "text":
		res.SetTextResponse(string(raw))
	default:
		var value any
		if len(strings.TrimSpace(string(raw))) > 0 {
			if err := jsonutil.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("decode input: %w", err)
			}
		}
		if format == "envelope" {
			res.SetJSONData(value)
			break
		}
		enc, ok := codec.ByName(format)
		if !ok {
			return fmt.Errorf("unknown format %q", opts.format)
		}
		res.SetJSONData(value)
		res.SetContentType(enc.ContentType())
		res.SetEncoder(enc)
	}

	body, err := res.ReadBytes()
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}

	if opts.showHeaders {
		if err := writeHeaders(out, res); err != nil {
			return err
		}
	}
	_, err = out.Write(body)
	return err
}

func writeHeaders(out io.Writer, res *responder.Response[responder.StatusCode]) error {
	var errs []error
	_, err := fmt.Fprintf(out, "Status: %d\nContent-Type: %s\n", res.StatusCode(), res.ContentType())
	errs = append(errs, err)
	for _, h := range res.Finalize() {
		_, err := fmt.Fprintf(out, "%s: %s\n", h.Name, h.Value)
		errs = append(errs, err)
	}
	_, err = fmt.Fprintln(out)
	errs = append(errs, err)
	return errors.Join(errs...)
}
