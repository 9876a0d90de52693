package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/entity-profile/internal/model"
	"github.com/danielpatrickdp/entity-profile/internal/store"
)

var (
	seedDetector   string
	seedName       string
	seedCategories []string
	seedInterval   time.Duration
	seedEntities   []string
	seedSamples    int
	seedNoJob      bool
	seedDisabled   bool
)

// #region command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a detector, its job and anomaly results into the local store",
	Long: `Creates the detector, job and result indices when missing, writes the
detector and job documents, and indexes one result per detection interval
for every entity, ending now.

Use --no-job to leave the job index untouched; profiles then report UNKNOWN.`,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedDetector, "detector", "", "detector id")
	f.StringVar(&seedName, "name", "", "detector name (defaults to the id)")
	f.StringSliceVar(&seedCategories, "category-field", []string{"host"}, "category field, repeat for more than one")
	f.DurationVar(&seedInterval, "interval", 10*time.Minute, "detection interval")
	f.StringSliceVar(&seedEntities, "entity", nil, "entity value, repeat for more than one")
	f.IntVar(&seedSamples, "samples", 64, "results to index per entity")
	f.BoolVar(&seedNoJob, "no-job", false, "do not write a job document")
	f.BoolVar(&seedDisabled, "disabled", false, "write the job as disabled")
	_ = seedCmd.MarkFlagRequired("detector")
}
// #endregion command

// #region run
func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	indices := []string{model.DetectorIndex, model.ResultIndex}
	if !seedNoJob {
		indices = append(indices, model.JobIndex)
	}
	for _, idx := range indices {
		if err := st.CreateIndex(ctx, idx); err != nil {
			return err
		}
	}

	name := seedName
	if name == "" {
		name = seedDetector
	}
	src, err := model.EncodeDetector(model.Detector{
		ID:                seedDetector,
		Name:              name,
		CategoryFields:    seedCategories,
		DetectionInterval: seedInterval,
	})
	if err != nil {
		return fmt.Errorf("encode detector: %w", err)
	}
	if err := st.PutDocument(ctx, model.DetectorIndex, seedDetector, src); err != nil {
		return err
	}

	now := time.Now().UTC()
	start := now.Add(-time.Duration(seedSamples) * seedInterval)
	if !seedNoJob {
		src, err := model.EncodeJob(model.Job{Name: name, Enabled: !seedDisabled, EnabledTime: start})
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		if err := st.PutDocument(ctx, model.JobIndex, seedDetector, src); err != nil {
			return err
		}
	}

	field := ""
	if len(seedCategories) > 0 {
		field = seedCategories[0]
	}
	for _, entity := range seedEntities {
		for i := 1; i <= seedSamples; i++ {
			_, err := st.IndexResult(ctx, store.Result{
				DetectorID:       seedDetector,
				EntityField:      field,
				EntityValue:      entity,
				ExecutionEndTime: start.Add(time.Duration(i) * seedInterval),
			})
			if err != nil {
				return err
			}
		}
	}

	logger.Info("seeded detector",
		zap.String("detector_id", seedDetector),
		zap.Strings("entities", seedEntities),
		zap.Int("samples", seedSamples),
		zap.Bool("job", !seedNoJob))
	fmt.Printf("Seeded %s: %d entities x %d results in %s\n", seedDetector, len(seedEntities), seedSamples, cfg.DBPath)
	return nil
}
// #endregion run
