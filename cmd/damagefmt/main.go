// Command damagefmt checks a damage assessment in wire form and prints it
// back in canonical order, or as JSON. With --submit it also publishes the
// text to the intake stream of a running damage-intake server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"damage-intake/pkg/damage"
	"damage-intake/pkg/shared"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
	exitSubmit  = 3
)

type options struct {
	json   bool
	submit string
	source string
	path   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "damagefmt").Logger()

	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "damagefmt: %v\n", err)
		return exitUsage
	}

	text, err := readInput(opts.path, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "damagefmt: %v\n", err)
		return exitUsage
	}

	record, err := damage.Parse(text)
	if err != nil {
		code, _ := damage.ErrorCode(err)
		fmt.Fprintf(stderr, "%s: %v\n", code, err)
		return exitInvalid
	}

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			fmt.Fprintf(stderr, "damagefmt: %v\n", err)
			return exitInvalid
		}
	} else {
		fmt.Fprintln(stdout, damage.Render(record))
	}

	if opts.submit != "" {
		msgID, err := submit(opts.submit, opts.source, text)
		if err != nil {
			logger.Error().Err(err).Str("url", opts.submit).Msg("submit failed")
			return exitSubmit
		}
		logger.Info().
			Str("subject", shared.IntakeSubject(opts.source)).
			Str("msg_id", msgID).
			Str("msg_no", record.Fields().MsgNo).
			Msg("submitted")
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("damagefmt", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.json, "json", false, "print the record as JSON instead of wire text")
	fs.StringVar(&opts.submit, "submit", "", "NATS URL to publish the report to")
	fs.StringVar(&opts.source, "source", shared.SourceCLI, "intake source token used in the subject")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: damagefmt [flags] [file]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 1 {
		return opts, fmt.Errorf("expected at most one file, got %d", fs.NArg())
	}
	if opts.source == "" {
		return opts, errors.New("--source must not be empty")
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// submit publishes text to the intake subject for source and returns the
// dedup id it used.
func submit(url, source, text string) (string, error) {
	nc, err := nats.Connect(url, nats.Name("damagefmt"), nats.Timeout(5*time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return "", fmt.Errorf("failed to create JetStream context: %w", err)
	}

	msgID := uuid.New().String()
	msg := nats.NewMsg(shared.IntakeSubject(source))
	msg.Data = []byte(text)
	msg.Header.Set(nats.MsgIdHdr, msgID)

	if _, err := js.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("failed to publish report: %w", err)
	}
	return msgID, nil
}
