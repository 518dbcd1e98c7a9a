// Package training implements the base trainer: the metrics ledger,
// optimizer binding, epoch loop, plateau handling, checkpointing, and
// inference adapters shared by all models.
package training

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"

	"github.com/tilecoder/tilecoder/checkpoints"
	"github.com/tilecoder/tilecoder/dataset"
	"github.com/tilecoder/tilecoder/device"
	"github.com/tilecoder/tilecoder/nn"
	"github.com/tilecoder/tilecoder/optimizer"
	"github.com/tilecoder/tilecoder/tensor"
)

// Loader is a restartable batched data source.
type Loader interface {
	Reset()
	Next() (*dataset.Batch, error)
	Len() int
}

// DataSource supplies the train and validation loaders for a run.
type DataSource interface {
	TrainLoader() *dataset.DataLoader
	ValLoader() *dataset.DataLoader
}

// BaseTrainer drives training of a reconstruction model: it owns the
// metrics ledger, the optimizer, the plateau controller, output
// directories, and checkpointing.
type BaseTrainer struct {
	model     nn.Model
	cfg       Config
	loss      Loss
	opt       optimizer.Optimizer
	history   *History
	plateau   *PlateauController
	state     TrainerState
	savePaths SavePaths
	saver     *checkpoints.Saver
	sink      Sink
	sinkScope string
}

// New creates a trainer bound to model, with output directories created
// under homepath. Zero config fields are defaulted.
func New(model nn.Model, cfg Config, homepath string) (*BaseTrainer, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: trainer requires a model", ErrNotInitialized)
	}
	cfg.ApplyDefaults()
	savePaths, err := initSavePaths(homepath, true)
	if err != nil {
		return nil, err
	}
	return &BaseTrainer{
		model:     model,
		cfg:       cfg,
		loss:      NewMSELoss(),
		history:   NewHistory(cfg.MetricsNames),
		plateau:   NewPlateauController(cfg),
		state:     newTrainerState(),
		savePaths: savePaths,
		saver:     checkpoints.NewSaver(checkpoints.FormatJSON),
		sinkScope: "training",
	}, nil
}

// Config returns the defaulted configuration in effect.
func (t *BaseTrainer) Config() Config { return t.cfg }

// History returns the metrics ledger.
func (t *BaseTrainer) History() *History { return t.history }

// State returns a copy of the current training state.
func (t *BaseTrainer) State() TrainerState { return t.state }

// SavePaths returns the output directory map.
func (t *BaseTrainer) SavePaths() SavePaths { return t.savePaths }

// Optimizer returns the bound optimizer, or nil.
func (t *BaseTrainer) Optimizer() optimizer.Optimizer { return t.opt }

// Plateau returns the plateau controller.
func (t *BaseTrainer) Plateau() *PlateauController { return t.plateau }

// SetLoss replaces the default reconstruction loss. The loss must return
// one term per configured metric name.
func (t *BaseTrainer) SetLoss(l Loss) error {
	if l == nil {
		return fmt.Errorf("%w: nil loss", ErrInvalidInput)
	}
	t.loss = l
	return nil
}

// SetCheckpointFormat selects the encoding for the end-of-run
// checkpoint.
func (t *BaseTrainer) SetCheckpointFormat(f checkpoints.Format) {
	t.saver = checkpoints.NewSaver(f)
}

// SetOptimizer builds and binds an optimizer over the model's current
// parameters. It must be called after the model is bound; argument keys
// the kind does not accept are dropped. Config.LR seeds the rate unless
// args carries its own.
func (t *BaseTrainer) SetOptimizer(kind optimizer.Kind, args map[string]float64) error {
	if t.model == nil {
		return fmt.Errorf("%w: cannot bind an optimizer without a model", ErrNotInitialized)
	}
	merged := make(map[string]float64, len(args)+1)
	for k, v := range t.cfg.OptimizerArgs {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}
	if _, ok := merged["lr"]; !ok && t.cfg.LR > 0 {
		merged["lr"] = t.cfg.LR
	}
	opt, err := optimizer.New(kind, t.model.Parameters(), merged)
	if err != nil {
		return err
	}
	t.opt = opt
	klog.V(1).Infof("optimizer %s bound with lr=%g", opt.Name(), opt.LR())
	return nil
}

// EnableMetricsSink registers a per-epoch metrics sink logging under
// dir. Re-enabling replaces the previous sink and warns, since the old
// log location is abandoned.
func (t *BaseTrainer) EnableMetricsSink(sink Sink, dir string) error {
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrInvalidInput)
	}
	if prev, ok := t.savePaths["tb_logs"]; ok {
		klog.Warningf("metrics sink already enabled at %s; replacing with %s", prev, dir)
		if t.sink != nil {
			if err := t.sink.Close(); err != nil {
				klog.Warningf("closing previous metrics sink: %v", err)
			}
		}
	}
	t.savePaths["tb_logs"] = dir
	t.sink = sink
	return nil
}

// FitOptions tunes a single Fit run.
type FitOptions struct {
	// InitialEpoch offsets the epoch counter when resuming.
	InitialEpoch int
}

// Fit runs the full training loop: alternating train and validation
// epochs with best-model tracking, learning-rate decay on plateaus,
// early stopping, and a final checkpoint of the best weights.
func (t *BaseTrainer) Fit(dm DataSource, opts FitOptions) error {
	if t.opt == nil {
		return fmt.Errorf("%w: call SetOptimizer before Fit", ErrNotInitialized)
	}
	if dm == nil || dm.TrainLoader() == nil || dm.ValLoader() == nil {
		return fmt.Errorf("%w: data source with train and validation loaders required", ErrInvalidInput)
	}

	klog.Infof("training on %s", device.Detect())

	t.state.Epoch = opts.InitialEpoch
	t.state.EarlyStopped = false
	// Resume-aware: the best loss seeds from any validation history
	// already recorded, otherwise +Inf.
	if best, ok := t.history.Best("val_loss"); ok {
		t.state.BestLoss = best
	}

	start := time.Now()
	for epoch := opts.InitialEpoch; epoch < t.cfg.MaxEpochs; epoch++ {
		t.state.Epoch = epoch

		t.model.Train()
		if err := t.runEpoch(dm.TrainLoader(), "train", true); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch+1, err)
		}
		t.model.Eval()
		if err := t.runEpoch(dm.ValLoader(), "val", false); err != nil {
			return fmt.Errorf("epoch %d validation: %w", epoch+1, err)
		}

		vloss, ok := t.history.Last("val_loss")
		if !ok {
			return fmt.Errorf("no validation loss recorded for epoch %d", epoch+1)
		}
		improved := vloss < t.state.BestLoss
		if improved {
			t.state.BestLoss = vloss
			t.state.BestState = nn.CloneStateDict(t.model.StateDict())
		}
		t.plateau.Observe(improved)
		if lr, reduced := t.plateau.MaybeReduceLR(t.opt); reduced {
			klog.Infof("learning rate reduced to %g", lr)
		}

		tloss, _ := t.history.Last("train_loss")
		klog.Infof("epoch %d/%d train_loss=%.6f val_loss=%.6f best=%.6f",
			epoch+1, t.cfg.MaxEpochs, tloss, vloss, t.state.BestLoss)

		if t.sink != nil {
			if err := t.sink.PushScalars(t.sinkScope, epoch+1, t.history.LastExcludingPrefix("val_")); err != nil {
				klog.Warningf("metrics sink push failed: %v", err)
			}
		}

		t.state.Epoch = epoch + 1
		if t.plateau.ShouldStop() {
			t.state.EarlyStopped = true
			klog.Infof("early stopping after epoch %d", epoch+1)
			break
		}
	}
	klog.Infof("training finished in %s", time.Since(start).Round(time.Millisecond))

	return t.saveFinalCheckpoint()
}

// runEpoch makes one pass over loader. In training mode each batch is
// backpropagated and stepped; otherwise gradients are never recorded.
// Per-term running sums are kept in float64 and averaged over the batch
// count before being recorded under phase.
func (t *BaseTrainer) runEpoch(loader Loader, phase string, train bool) error {
	loader.Reset()
	var sums [][]float64
	batches := 0

	process := func(batch *dataset.Batch) error {
		out, err := t.model.Forward(batch.Images)
		if err != nil {
			return err
		}
		terms, err := t.loss.Compute(out, batch.Images)
		if err != nil {
			return err
		}
		if len(terms) != len(t.cfg.MetricsNames) {
			return fmt.Errorf("loss returned %d terms for %d metric names", len(terms), len(t.cfg.MetricsNames))
		}
		if train {
			if err := terms[0].Backward(); err != nil {
				return err
			}
			if err := t.opt.Step(); err != nil {
				return err
			}
		}
		if sums == nil {
			sums = make([][]float64, len(terms))
			for i, term := range terms {
				sums[i] = make([]float64, term.NumElems())
			}
		}
		for i, term := range terms {
			if len(sums[i]) != term.NumElems() {
				return fmt.Errorf("metric %q changed size mid-epoch", t.cfg.MetricsNames[i])
			}
			for j, v := range term.Data {
				sums[i][j] += float64(v)
			}
		}
		batches++
		return nil
	}

	for {
		batch, err := loader.Next()
		if err != nil {
			return err
		}
		if batch == nil {
			break
		}
		if train {
			t.opt.ZeroGrad()
			if err := process(batch); err != nil {
				return err
			}
			continue
		}
		if err := tensor.NoGrad(func() error { return process(batch) }); err != nil {
			return err
		}
	}

	if batches == 0 {
		return fmt.Errorf("%w: loader produced no batches", ErrInvalidInput)
	}
	values := make([]MetricValue, len(sums))
	for i, sum := range sums {
		if len(sum) == 1 {
			values[i] = Scalar(sum[0] / float64(batches))
			continue
		}
		comps := make([]float64, len(sum))
		for j, v := range sum {
			comps[j] = v / float64(batches)
		}
		values[i] = List(comps...)
	}
	return t.history.Record(phase, values)
}

// saveFinalCheckpoint writes the best weights (or current ones when no
// epoch improved) under the checkpoints directory, named from the final
// epoch.
func (t *BaseTrainer) saveFinalCheckpoint() error {
	stateDict := t.state.BestState
	if stateDict == nil {
		stateDict = t.model.StateDict()
	}
	// JSON cannot represent non-finite values; a run with no improvement
	// still has BestLoss at +Inf, stored as MaxFloat64 and mapped back on
	// load.
	bestLoss := t.state.BestLoss
	if math.IsInf(bestLoss, 0) || math.IsNaN(bestLoss) {
		bestLoss = math.MaxFloat64
	}
	lrNoImprove, earlyStop := t.plateau.Counts()
	cp := &checkpoints.Checkpoint{
		Weights: checkpoints.FromStateDict(stateDict),
		TrainingState: checkpoints.TrainingState{
			Epoch:            t.state.Epoch,
			LearningRate:     t.opt.LR(),
			BestLoss:         bestLoss,
			LRNoImproveCount: lrNoImprove,
			EarlyStopCount:   earlyStop,
			TotalEpochsLimit: t.cfg.MaxEpochs,
			EarlyStopped:     t.state.EarlyStopped,
		},
		Metadata: checkpoints.Metadata{
			CreatedAt: time.Now().UTC(),
			Framework: "tilecoder",
		},
	}
	st := t.opt.State()
	cp.OptimizerState = &st

	name := fmt.Sprintf("model_%d%s", t.state.Epoch, t.saver.Format().Ext())
	path := filepath.Join(t.savePaths["checkpoints"], name)
	if err := t.saver.Save(cp, path); err != nil {
		return fmt.Errorf("saving final checkpoint: %w", err)
	}
	klog.Infof("checkpoint written to %s", path)
	return nil
}

// LoadCheckpoint restores model weights, optimizer state, and plateau
// counters from a checkpoint file. The optimizer must already be bound
// when the checkpoint carries optimizer state.
func (t *BaseTrainer) LoadCheckpoint(path string) error {
	cp, err := t.saver.Load(path)
	if err != nil {
		return err
	}
	params := make([]nn.NamedParam, len(cp.Weights))
	for i, w := range cp.Weights {
		ten, err := tensor.New(w.Data, w.Shape...)
		if err != nil {
			return fmt.Errorf("weight %q: %v", w.Name, err)
		}
		params[i] = nn.NamedParam{Name: w.Name, Tensor: ten}
	}
	if err := t.model.LoadStateDict(params); err != nil {
		return err
	}
	t.state.Epoch = cp.TrainingState.Epoch
	t.state.BestLoss = cp.TrainingState.BestLoss
	if t.state.BestLoss >= math.MaxFloat64 {
		t.state.BestLoss = math.Inf(1)
	}
	t.plateau.Restore(cp.TrainingState.LRNoImproveCount, cp.TrainingState.EarlyStopCount)
	if cp.OptimizerState != nil {
		if t.opt == nil {
			return fmt.Errorf("%w: checkpoint carries optimizer state but no optimizer is bound", ErrNotInitialized)
		}
		if err := t.opt.LoadState(*cp.OptimizerState); err != nil {
			return err
		}
	}
	return nil
}
