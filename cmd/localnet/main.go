// Command localnet runs a committee of primaries in one process. The
// authorities talk over an in-memory network, each on its own store, and are
// fed by batch makers producing random transactions.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dagbft/narwhal/cmd"
	"github.com/dagbft/narwhal/config"
	"github.com/dagbft/narwhal/engine/loadgen"
	"github.com/dagbft/narwhal/engine/primary"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/module/metrics"
	"github.com/dagbft/narwhal/module/trace"
	"github.com/dagbft/narwhal/network/stub"
	"github.com/dagbft/narwhal/storage/store"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.DefaultConfig()
	root := &cobra.Command{
		Use:          "localnet",
		Short:        "Run a local committee of narwhal primaries",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			err := cfg.Load(c.Flags())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(c.Context(), cfg)
		},
	}
	cfg.BindFlags(root.Flags())
	return root
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := cmd.InitLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	committee, signers, err := newCommittee(cfg.Authorities)
	if err != nil {
		return err
	}
	log.Info().Int("authorities", committee.Size()).Uint64("total_stake", uint64(committee.TotalStake())).Msg("committee created")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder := cmd.NewNodeBuilder("localnet", log, cfg.StartupTimeout, cfg.ShutdownTimeout)
	if cfg.MetricsAddress != "" {
		builder.Component("metrics server", metrics.NewServer(log, cfg.MetricsAddress, registry))
	}

	hub := stub.NewHub(log, committee)
	tracer := trace.NewTracer()
	primaries := make([]*primary.Primary, 0, committee.Size())
	for _, index := range committee.Indices() {
		dir := filepath.Join(cfg.DataDir, fmt.Sprintf("authority-%d", index))
		db, closeDB, err := cmd.OpenDB(cfg.DBEngine, dir)
		if err != nil {
			return fmt.Errorf("could not open store of authority %d: %w", index, err)
		}
		builder.PostShutdown(closeDB)

		registerer := prometheus.WrapRegistererWith(prometheus.Labels{metrics.LabelNode: strconv.Itoa(int(index))}, registry)
		stores := store.InitAll(metrics.NewCacheCollector(registerer), db)
		net := hub.AddNetwork(index, stores.Certificates, stores.Batches, stores.Payloads)

		digests := make(chan narwhal.OwnBatch, cfg.MaxHeaderDigests)
		maker, err := loadgen.NewBatchMaker(log, 0, stores.Batches, stores.Payloads, digests,
			loadgen.WithInterval(cfg.BatchInterval),
			loadgen.WithBatchShape(cfg.BatchSize, cfg.TransactionSize))
		if err != nil {
			return fmt.Errorf("could not create batch maker of authority %d: %w", index, err)
		}

		p, err := primary.New(log, metrics.NewPrimaryCollector(registerer), tracer, committee, index, signers[index],
			stores, net, digests, cfg.PrimaryOptions())
		if err != nil {
			return fmt.Errorf("could not create primary %d: %w", index, err)
		}
		primaries = append(primaries, p)

		builder.
			Component(fmt.Sprintf("primary %d", index), p).
			Component(fmt.Sprintf("batch maker %d", index), maker)
	}
	builder.Component("reporter", newReporter(log, primaries, 5*time.Second))

	return builder.Run(ctx)
}
