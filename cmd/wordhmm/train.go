package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ieee0824/wordhmm-go/compose"
	"github.com/ieee0824/wordhmm-go/corpus"
	"github.com/ieee0824/wordhmm-go/hmm"
	"github.com/ieee0824/wordhmm-go/internal/metrics"
	"github.com/ieee0824/wordhmm-go/lexicon"
	"github.com/ieee0824/wordhmm-go/store"
	"github.com/ieee0824/wordhmm-go/train"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train one model per corpus word",
	Long: `Reads the label corpus, seeds letter and silence emissions from label
frequencies, composes a model per word and runs EM until convergence.
The trained models are written to --out as one gob file.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	f := trainCmd.Flags()
	f.String("config", "", "YAML training config")
	f.String("lblnames", "", "label-name file")
	f.String("labels", "", "label file, one utterance per line")
	f.String("script", "", "script file, one word per line")
	f.String("endpts", "", "endpoint file for silence seeding (optional)")
	f.String("dict", "", "spelling dictionary (optional, default spells words letter by letter)")
	f.String("out", "models.gob", "output model file")
	f.String("db", "", "SQLite file recording the run (optional)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	f.Int("iterations", 0, "override max_iterations")
	f.Int("workers", 0, "override workers")
	f.String("engine", "", "override engine: scaled or log")
	f.Bool("progress", true, "show a progress bar")
}

func trainConfig(cmd *cobra.Command) (train.Config, error) {
	f := cmd.Flags()
	cfg := train.DefaultConfig()
	if path, _ := f.GetString("config"); path != "" {
		var err error
		if cfg, err = train.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	for flag, dst := range map[string]*string{
		"lblnames": &cfg.Corpus.LabelNames,
		"labels":   &cfg.Corpus.Labels,
		"script":   &cfg.Corpus.Script,
		"endpts":   &cfg.Corpus.Endpoints,
	} {
		if f.Changed(flag) {
			*dst, _ = f.GetString(flag)
		}
	}
	if f.Changed("iterations") {
		cfg.MaxIterations, _ = f.GetInt("iterations")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("engine") {
		e, _ := f.GetString("engine")
		cfg.Engine = train.Engine(e)
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers()
	}
	if cfg.Corpus.LabelNames == "" || cfg.Corpus.Labels == "" || cfg.Corpus.Script == "" {
		return cfg, errors.New("lblnames, labels and script are required")
	}
	return cfg, cfg.Validate()
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := trainConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}
	logCPU(log)

	c, err := corpus.Load(cfg.Corpus)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	log.Info("corpus", "utterances", len(c.Utterances), "words", len(c.Words()), "labels", c.Labels.Len())

	letterEmit := corpus.LaplaceSmooth(c.Counts())
	silenceEmit := letterEmit
	if cfg.Corpus.Endpoints != "" {
		silenceEmit = corpus.LaplaceSmooth(c.SilenceCounts())
	}
	inv, err := compose.StandardInventory(c.Labels.Len(), letterEmit, silenceEmit)
	if err != nil {
		return err
	}

	data := c.ByWord()
	var heldOut map[string][][]int
	if cfg.HeldOutFraction > 0 {
		data, heldOut = c.Split(cfg.HeldOutFraction, cfg.Seed)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewTrainer(reg)
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, reg, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := openRecorder(ctx, cmd, cfg, len(data))
	if err != nil {
		return err
	}
	defer rec.close()

	opts := []train.Option{
		train.WithLogger(log),
		train.WithMetrics(m),
	}
	if heldOut != nil {
		opts = append(opts, train.WithHeldOut(heldOut))
	}
	if path, _ := cmd.Flags().GetString("dict"); path != "" {
		dict, err := lexicon.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load dict: %w", err)
		}
		opts = append(opts, train.WithSpeller(func(word string) ([]compose.Letter, error) {
			if s, ok := dict.Spelling(word); ok {
				return s, nil
			}
			return compose.Spell(word)
		}))
	}
	var bar *progressbar.ProgressBar
	if show, _ := cmd.Flags().GetBool("progress"); show {
		bar = progressbar.NewOptions(cfg.MaxIterations,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("EM"),
			progressbar.OptionShowCount(),
		)
	}
	opts = append(opts, train.WithIterationHook(func(r train.IterationResult) {
		if bar != nil {
			_ = bar.Add(1)
		}
		if err := rec.iteration(ctx, r); err != nil {
			log.Warn("record iteration", "error", err)
		}
	}))

	tr, err := train.New(cfg, inv, data, opts...)
	if err != nil {
		rec.finish(ctx, store.StatusFailed, nil, nil)
		return err
	}

	runErr := tr.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	status := store.StatusDone
	switch {
	case errors.Is(runErr, context.Canceled):
		status = store.StatusCanceled
	case runErr != nil:
		status = store.StatusFailed
	}
	rec.finish(context.WithoutCancel(ctx), status, tr.History(), tr.Words())
	if runErr != nil && status != store.StatusCanceled {
		return runErr
	}

	out, _ := cmd.Flags().GetString("out")
	var buf bytes.Buffer
	if err := hmm.SaveAll(&buf, tr.Models()); err != nil {
		return fmt.Errorf("encode models: %w", err)
	}
	if err := atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("models written", "path", out, "models", len(tr.Models()))

	w := cmd.OutOrStdout()
	for _, word := range tr.Words() {
		if word.Err != nil {
			fmt.Fprintf(w, "%-16s %-16s %v\n", word.Name, word.State, word.Err)
			continue
		}
		fmt.Fprintf(w, "%-16s %-16s loglik=%.4f\n", word.Name, word.State, word.Model.Stats().LogLikelihood)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}

// recorder writes the run history when --db is set and is a no-op
// otherwise.
type recorder struct {
	st      *store.Store
	id      uuid.UUID
	closeDB func() error
}

func openRecorder(ctx context.Context, cmd *cobra.Command, cfg train.Config, words int) (*recorder, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		return &recorder{}, nil
	}
	db, err := initDB(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	st, err := store.Open(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	id, err := st.StartRun(ctx, string(cfgYAML), words)
	if err != nil {
		db.Close()
		return nil, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s\n", id)
	return &recorder{st: st, id: id, closeDB: db.Close}, nil
}

func (r *recorder) iteration(ctx context.Context, res train.IterationResult) error {
	if r.st == nil {
		return nil
	}
	return r.st.RecordIteration(ctx, r.id, res)
}

func (r *recorder) finish(ctx context.Context, status string, history []train.IterationResult, words []*train.Word) {
	if r.st == nil {
		return
	}
	ll := math.NaN()
	if len(history) > 0 {
		ll = history[len(history)-1].LogLikelihood
	}
	if err := r.st.FinishRun(ctx, r.id, status, ll, words); err != nil {
		fmt.Fprintf(os.Stderr, "record run: %v\n", err)
	}
}

func (r *recorder) close() {
	if r.closeDB != nil {
		_ = r.closeDB()
	}
}
