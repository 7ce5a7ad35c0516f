package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/internal/node"
	"github.com/0xPuncker/jobspec-watcher/internal/serializer"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	exitOK          = 0
	exitError       = 1
	exitUnsupported = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("jobspec", flag.ContinueOnError)
	flags.SetOutput(stderr)

	kind := flags.String("kind", "typed", "record kind: legacy or typed")
	file := flags.String("file", "", "path to a JSON:API document to render")
	id := flags.String("id", "", "job ID to fetch from the node")
	nodeURL := flags.String("node", os.Getenv("NODE_URL"), "node base URL")
	token := flags.String("token", os.Getenv("NODE_TOKEN"), "node API bearer token")
	verbose := flags.Bool("v", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		return exitError
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	generator := definition.NewGenerator(serializer.New(), logger)

	def, err := render(generator, logger, types.JobKind(*kind), *file, *id, *nodeURL, *token)
	if err != nil {
		fmt.Fprintf(stderr, "jobspec: %v\n", err)
		if errors.Is(err, definition.ErrUnsupportedJobType) {
			return exitUnsupported
		}
		return exitError
	}

	fmt.Fprintln(stdout, def.Text)
	return exitOK
}

func render(generator *definition.Generator, logger *logrus.Logger, kind types.JobKind, file, id, nodeURL, token string) (*definition.Definition, error) {
	if kind != types.KindLegacy && kind != types.KindTyped {
		return nil, fmt.Errorf("unknown kind %q, want %s or %s", kind, types.KindLegacy, types.KindTyped)
	}

	switch {
	case file != "" && id != "":
		return nil, fmt.Errorf("-file and -id are mutually exclusive")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if kind == types.KindLegacy {
			spec, err := types.DecodeJobSpec(data)
			if err != nil {
				return nil, err
			}
			return generator.JSONDefinition(*spec)
		}
		job, err := types.DecodeJob(data)
		if err != nil {
			return nil, err
		}
		return generator.TOMLDefinition(*job)
	case id != "":
		if nodeURL == "" {
			return nil, fmt.Errorf("-node or NODE_URL is required with -id")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := node.NewClient(logger, nodeURL, token, time.Minute)
		return generator.Fetch(ctx, client, kind, id, true)
	default:
		return nil, fmt.Errorf("one of -file or -id is required")
	}
}
