package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/config"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/report"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/upload"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/docx"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/logger"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

type formFlags struct {
	site     string
	date     string
	location string
}

func (f *formFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.site, "site", "", "site identifier")
	fs.StringVar(&f.date, "date", "", "execution date (YYYY-MM-DD or DD/MM/YYYY)")
	fs.StringVar(&f.location, "location", "", "location")
}

func (f *formFlags) form() upload.Form {
	return upload.Form{SiteID: f.site, ExecutionDate: f.date, Location: f.location}
}

func runGenerate(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var (
		form    formFlags
		photos  multiFlag
		session string
		layout  string
		force   bool
	)
	fs := newFlagSet("generate", stdout)
	form.register(fs)
	fs.Var(&photos, "photo", "category=path of one photo (repeatable), e.g. -photo antes=1.jpg")
	fs.StringVar(&session, "session", "", "continue a staged session (requires REDIS_URL)")
	fs.StringVar(&layout, "layout", "", "YAML layout file (default LAYOUT_FILE or built-in)")
	fs.BoolVar(&force, "force", false, "replace a report already stored under the same name")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, layout)
	if err != nil {
		return err
	}
	defer a.Close()

	ephemeral := session == ""
	if ephemeral {
		session = uuid.NewString()
	} else if err := a.requirePersistent(); err != nil {
		return err
	}

	ctx, _ = logger.WithGeneration(ctx)
	logger.FromContext(ctx).Info().Str("session", session).Bool("ephemeral", ephemeral).Msg("generating report")

	if ephemeral {
		defer func() {
			// a fresh context: cancellation must still discard the session
			if err := a.uploads.Clear(context.WithoutCancel(ctx), session); err != nil {
				logger.LogError(ctx, err, "failed to discard session", "session", session)
			}
		}()
	}

	if _, err := a.uploads.SaveForm(ctx, session, form.form()); err != nil {
		return err
	}
	if err := stagePhotos(ctx, a, session, photos); err != nil {
		return err
	}

	status, err := a.uploads.Status(ctx, session)
	if err != nil {
		return err
	}
	meta, err := status.Form.Request().ToMetadata()
	if err != nil {
		return err
	}

	st, err := a.storage(ctx)
	if err != nil {
		return err
	}
	key := report.StorageKey(meta.FileName())
	if !force {
		exists, err := st.Exists(ctx, key)
		if err != nil {
			return apperror.Wrap(apperror.KindResource, "store report", "failed to check output", err)
		}
		if exists {
			return apperror.Validation("store report", "report already exists",
				map[string]string{"output": fmt.Sprintf("%s já existe; use -force para substituir", key)})
		}
	}

	assets, err := a.uploads.Assets(ctx, session)
	if err != nil {
		return err
	}
	categories, err := a.layout.Assemble(assets)
	if err != nil {
		return err
	}

	builder, err := a.builder()
	if err != nil {
		return err
	}
	rpt, err := builder.Build(ctx, meta, categories)
	if err != nil {
		return err
	}

	if err := st.Put(ctx, key, bytes.NewReader(rpt.Content), rpt.ContentType); err != nil {
		return apperror.Wrap(apperror.KindResource, "store report", "failed to write report", err)
	}

	info, err := st.GetInfo(ctx, key)
	if err != nil {
		return apperror.Wrap(apperror.KindResource, "store report", "failed to verify stored report", err)
	}
	logger.LogInfo(ctx, "report stored", "key", key, "url", info.URL, "bytes", info.Size)

	fmt.Fprintln(stdout, "Relatório gerado com sucesso!")
	fmt.Fprintf(stdout, "Arquivo: %s\n", rpt.FileName)
	fmt.Fprintf(stdout, "Local: %s\n", info.URL)
	fmt.Fprintf(stdout, "Tipo: %s\n", rpt.ContentType)
	fmt.Fprintf(stdout, "Tamanho: %d bytes\n", info.Size)
	fmt.Fprintf(stdout, "Fotos: %d\n", rpt.ImageCount())
	return nil
}

// stagePhotos stages category=path pairs, one Stage call per category so that
// the given photos replace what the session held.
func stagePhotos(ctx context.Context, a *app, session string, pairs []string) error {
	byCategory := map[string][]string{}
	var order []string
	for _, pair := range pairs {
		category, path, ok := strings.Cut(pair, "=")
		if !ok || category == "" || path == "" {
			return fmt.Errorf("%w: -photo expects category=path, got %q", errUsage, pair)
		}
		if _, seen := byCategory[category]; !seen {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], path)
	}

	for _, category := range order {
		if err := stageFiles(ctx, a, session, category, byCategory[category]); err != nil {
			return err
		}
	}
	return nil
}

func stageFiles(ctx context.Context, a *app, session, category string, paths []string) error {
	files := make([]upload.File, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return apperror.Validation("stage uploads", "file could not be opened", map[string]string{path: err.Error()})
		}
		defer f.Close()
		files = append(files, upload.File{Name: path, Reader: f})
	}

	_, err := a.uploads.Stage(ctx, session, category, files)
	return err
}

func runStage(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var (
		form     formFlags
		session  string
		category string
	)
	fs := newFlagSet("stage", stdout)
	form.register(fs)
	fs.StringVar(&session, "session", "", "session id")
	fs.StringVar(&category, "category", "", "category key from the layout")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requirePersistent(); err != nil {
		return err
	}

	if _, err := a.uploads.SaveForm(ctx, session, form.form()); err != nil {
		return err
	}
	if category == "" && fs.NArg() > 0 {
		return fmt.Errorf("%w: -category is required when files are given", errUsage)
	}
	if fs.NArg() > 0 {
		if err := stageFiles(ctx, a, session, category, fs.Args()); err != nil {
			return err
		}
	}

	return printStatus(ctx, a, session, stdout)
}

func runStatus(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var session string
	fs := newFlagSet("status", stdout)
	fs.StringVar(&session, "session", "", "session id")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requirePersistent(); err != nil {
		return err
	}

	return printStatus(ctx, a, session, stdout)
}

func printStatus(ctx context.Context, a *app, session string, w io.Writer) error {
	status, err := a.uploads.Status(ctx, session)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Sessão: %s\n", status.Session)
	fmt.Fprintf(w, "Site ID: %s\n", status.Form.SiteID)
	fmt.Fprintf(w, "Data da Execução: %s\n", status.Form.ExecutionDate)
	fmt.Fprintf(w, "Localização: %s\n", status.Form.Location)
	for _, spec := range a.layout.Categories {
		fmt.Fprintf(w, "%s: %d foto(s)\n", spec.Label, status.Counts[spec.Key])
	}
	if status.Ready() && status.Total > 0 {
		fmt.Fprintln(w, "Pronto para gerar o relatório.")
	} else if !status.Ready() {
		fmt.Fprintf(w, "Campos pendentes: %s\n", strings.Join(status.Missing, ", "))
	}
	return nil
}

func runClear(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var session string
	fs := newFlagSet("clear", stdout)
	fs.StringVar(&session, "session", "", "session id")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requirePersistent(); err != nil {
		return err
	}

	if err := a.uploads.Clear(ctx, session); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Sessão %s limpa.\n", session)
	return nil
}

func runInspect(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	var stored bool
	fs := newFlagSet("inspect", stdout)
	fs.BoolVar(&stored, "stored", false, "read the report from the output storage by file name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: inspect takes exactly one .docx file", errUsage)
	}

	var (
		data []byte
		err  error
	)
	if stored {
		data, err = readStored(ctx, cfg, fs.Arg(0))
	} else {
		data, err = os.ReadFile(fs.Arg(0))
	}
	if err != nil {
		return apperror.Wrap(apperror.KindResource, "inspect", "failed to read file", err)
	}
	outline, err := docx.ReadOutline(data)
	if err != nil {
		return apperror.Wrap(apperror.KindDecode, "inspect", "file is not a readable .docx", err)
	}

	for _, p := range outline.Paragraphs {
		style := p.Style
		if style == "" {
			style = "Normal"
		}
		switch {
		case len(p.Pictures) > 0:
			sizes := make([]string, len(p.Pictures))
			for i, ext := range p.Pictures {
				sizes[i] = fmt.Sprintf("%gx%gcm", emuToCm(ext.CX), emuToCm(ext.CY))
			}
			fmt.Fprintf(stdout, "[%s] %d imagem(ns): %s\n", style, len(p.Pictures), strings.Join(sizes, " "))
		default:
			fmt.Fprintf(stdout, "[%s] %s\n", style, p.Text)
		}
	}
	fmt.Fprintf(stdout, "Imagens: %d\n", outline.PictureCount())
	fmt.Fprintf(stdout, "Mídias: %d\n", outline.MediaCount)
	return nil
}

func readStored(ctx context.Context, cfg *config.Config, name string) ([]byte, error) {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rc, err := st.Get(ctx, report.StorageKey(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func emuToCm(v docx.EMU) float64 {
	return float64(v) / float64(docx.Cm(1))
}
