package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/config"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/logger"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

const usage = `usage: zeladoria <command> [flags]

commands:
  generate   build a report from form fields and photos
  stage      add photos of one category to a session
  status     show the form fields and photo counts of a session
  clear      discard a session
  inspect    print the outline of a generated .docx

run "zeladoria <command> -h" for the flags of a command`

func main() {
	cfg := config.Load()

	closer, err := logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		Console: cfg.IsDevelopment(),
		LogFile: cfg.LogFile,
	})
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.LogFile).Msg("Failed to open log file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	closer.Close()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return exitUsage
	}

	var cmd func(context.Context, *config.Config, []string, io.Writer) error
	switch args[0] {
	case "generate":
		cmd = runGenerate
	case "stage":
		cmd = runStage
	case "status":
		cmd = runStatus
	case "clear":
		cmd = runClear
	case "inspect":
		cmd = runInspect
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return exitUsage
	}

	if err := cmd(ctx, cfg, args[1:], stdout); err != nil {
		return printError(stderr, err)
	}
	return exitOK
}

var errUsage = errors.New("invalid usage")

// printError prints a user-facing message for err and picks the exit code.
func printError(w io.Writer, err error) int {
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(w, err)
		return exitUsage
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Operação cancelada. Nenhum arquivo foi gerado.")
		return exitCancelled
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		fmt.Fprintln(w, "Dados inválidos:")
		details := apperror.DetailsOf(err)
		if len(details) == 0 {
			fmt.Fprintf(w, "  %v\n", err)
		}
		fields := make([]string, 0, len(details))
		for field := range details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(w, "  %s: %s\n", field, details[field])
		}
		return exitUsage
	case apperror.KindDecode:
		fmt.Fprintf(w, "Não foi possível ler uma das fotos. Envie o arquivo novamente.\n  %v\n", err)
	case apperror.KindEncode:
		fmt.Fprintf(w, "Falha ao gerar o documento.\n  %v\n", err)
	case apperror.KindResource:
		fmt.Fprintf(w, "Falha ao acessar armazenamento temporário.\n  %v\n", err)
	default:
		fmt.Fprintf(w, "Erro: %v\n", err)
	}
	return exitFailure
}

// multiFlag collects a repeatable flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
