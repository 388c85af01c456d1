package commander

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"mlfit/internal/dataset"
	"mlfit/internal/evaluation"
	"mlfit/internal/jobs"
	"mlfit/internal/learn"
	"mlfit/internal/learners"
	"mlfit/internal/persistence"
	"mlfit/internal/preprocessing"
)

// Commander is the interactive shell: load a dataset, train a fitter
// (in the background as a job), inspect, predict, save and reload
// bundles.
type Commander struct {
	data       *dataset.Dataset
	dataFile   string
	encoder    *preprocessing.LabelEncoder
	jobManager *jobs.Manager

	// bundle is written by background training jobs and read by the
	// shell loop, so every access goes through the mutex.
	mu     sync.Mutex
	bundle *persistence.ModelBundle

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
}

func NewCommander() *Commander {
	return &Commander{
		jobManager: jobs.NewManager(),
		green:      color.New(color.FgGreen).SprintFunc(),
		red:        color.New(color.FgRed).SprintFunc(),
		yellow:     color.New(color.FgYellow).SprintFunc(),
		cyan:       color.New(color.FgCyan).SprintFunc(),
	}
}

func (c *Commander) Start() {
	fmt.Println(c.cyan("mlfit interactive shell — type 'help' for commands"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(c.cyan("mlfit> "))
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			c.printHelp()
		case "data":
			c.cmdData(fields[1:])
		case "stream":
			c.cmdStream(fields[1:])
		case "info":
			c.cmdInfo()
		case "fitters":
			fmt.Println(strings.Join(learners.Names(), ", "))
		case "train":
			c.cmdTrain(fields[1:])
		case "jobs":
			c.cmdJobs()
		case "job":
			c.cmdJob(fields[1:])
		case "predict":
			c.cmdPredict(fields[1:])
		case "evaluate":
			c.cmdEvaluate(fields[1:])
		case "save":
			c.cmdSave(fields[1:])
		case "load":
			c.cmdLoad(fields[1:])
		case "quit", "exit":
			return
		default:
			fmt.Println(c.red("unknown command:"), fields[0])
		}
	}
}

func (c *Commander) printHelp() {
	fmt.Println(`Commands:
  data <file.csv>              load a dataset (target kind inferred)
  stream <file.csv> [batch]    load a labeled dataset in batches
  info                         describe the loaded dataset
  fitters                      list available fitter definitions
  train <fitter> [key=value]   train in the background (e.g. train knn k=3)
  jobs                         list background jobs
  job <id>                     show one job's status and logs
  predict <v1,v2,...>          predict with the current model
  evaluate <file.csv> [batch]  score the current model on a labeled file
  save <file>                  save the current model bundle
  load <file>                  load a model bundle
  quit                         leave`)
}

func (c *Commander) cmdData(args []string) {
	if len(args) != 1 {
		fmt.Println(c.red("usage: data <file.csv>"))
		return
	}

	ds, encoder, err := dataset.LoadCSV(args[0], dataset.LoadOptions{LabelCol: -1})
	if err != nil {
		fmt.Println(c.red("failed to load dataset:"), err)
		return
	}

	c.data = ds
	c.dataFile = args[0]
	c.encoder = encoder
	fmt.Printf("%s %d samples, %d features, %s target\n",
		c.green("loaded:"), ds.Len(), ds.NumFeatures(), ds.TargetKind())
}

// cmdStream is the batched counterpart of cmdData for files too large
// to parse in one read.
func (c *Commander) cmdStream(args []string) {
	if len(args) < 1 {
		fmt.Println(c.red("usage: stream <file.csv> [batch-size]"))
		return
	}
	batchSize := batchSizeArg(args, 1000)

	ds, encoder, err := dataset.LoadStreaming(args[0], -1, batchSize)
	if err != nil {
		fmt.Println(c.red("failed to stream dataset:"), err)
		return
	}

	c.data = ds
	c.dataFile = args[0]
	c.encoder = encoder
	fmt.Printf("%s %d samples, %d features (batches of %d)\n",
		c.green("streamed:"), ds.Len(), ds.NumFeatures(), batchSize)
}

func batchSizeArg(args []string, fallback int) int {
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func (c *Commander) cmdInfo() {
	if c.data == nil {
		fmt.Println(c.yellow("no dataset loaded"))
		return
	}

	stats := c.data.Describe()
	fmt.Printf("file: %s\nsamples: %d\nfeatures: %d\ntarget: %s\n",
		c.dataFile, stats.Samples, stats.Features, stats.TargetKind)
	if stats.Classes != nil {
		fmt.Println("class distribution:")
		for class, count := range stats.Classes {
			fmt.Printf("  %s: %d\n", c.data.ClassName(class), count)
		}
	}
	for _, fs := range stats.FeatureStats {
		fmt.Printf("  %-16s min=%s max=%s mean=%s\n", fs.Name, fs.Min, fs.Max, fs.Mean.Round(4))
	}
}

func (c *Commander) cmdTrain(args []string) {
	if c.data == nil {
		fmt.Println(c.yellow("load a dataset first (data <file.csv>)"))
		return
	}
	if len(args) < 1 {
		fmt.Println(c.red("usage: train <fitter> [key=value ...]"))
		return
	}

	def, err := learners.Lookup(args[0])
	if err != nil {
		fmt.Println(c.red(err.Error()))
		return
	}

	params := parseParams(args[1:])
	ds := c.data
	name := c.dataFile
	encoder := c.encoder

	job, _ := c.jobManager.Create("train", fmt.Sprintf("train %s on %s", def.Name(), name))
	fmt.Printf("%s job %s\n", c.green("started:"), job.ID)

	go func() {
		job.SetStatus(jobs.JobRunning)
		job.AddLog(fmt.Sprintf("training %s", def.Name()))

		fitter := def.NewFitter(nil, params)
		fitter.SetUseDefaultPreprocessors(true)

		start := time.Now()
		model, err := fitter.Fit(ds)
		if err != nil {
			job.AddLog(err.Error())
			job.Fail(err)
			return
		}

		bundle := persistence.NewModelBundle(model)
		bundle.LabelEncoder = encoder
		bundle.Metadata.FitterName = def.Name()
		bundle.Metadata.Dataset = name
		bundle.Metadata.TrainingTime = time.Since(start)
		bundle.Metadata.Features = ds.Features
		if kind, ok := fitter.ActiveKind(); ok {
			bundle.Metadata.ProblemKind = kind.String()
		}
		if fitterParams, err := fitter.Params(); err == nil {
			bundle.SetParameters(fitterParams)
		}

		score, scoreName, err := holdoutScore(fitter, ds)
		if err == nil {
			bundle.Metadata.Score = score
			bundle.Metadata.ScoreName = scoreName
			job.AddLog(fmt.Sprintf("%s: %.4f", scoreName, score))
		}

		c.setBundle(bundle)
		job.AddLog("training finished")
		job.Complete(model.Name())
	}()
}

// holdoutScore refits on an 80/20 split for a quick quality estimate.
func holdoutScore(fitter *learn.Fitter, ds *dataset.Dataset) (float64, string, error) {
	splitter := evaluation.NewTrainTestSplitter(0.2, 42, true)
	train, test, err := splitter.Split(ds)
	if err != nil {
		return 0, "", err
	}

	model, err := fitter.Fit(train)
	if err != nil {
		return 0, "", err
	}
	preds, err := model.Predict(test.X)
	if err != nil {
		return 0, "", err
	}

	if ds.TargetKind() == dataset.TargetDiscrete {
		decoded := evaluation.DecodePredictions(preds)
		correct := 0
		for i, pred := range decoded {
			if pred == test.Classes[i] {
				correct++
			}
		}
		return float64(correct) / float64(test.Len()), "accuracy", nil
	}

	metrics, err := evaluation.RegressMetrics(test.Values, preds)
	if err != nil {
		return 0, "", err
	}
	return metrics.R2, "r2", nil
}

func (c *Commander) cmdJobs() {
	all := c.jobManager.List()
	if len(all) == 0 {
		fmt.Println(c.yellow("no jobs"))
		return
	}
	for _, job := range all {
		fmt.Printf("%s  %-9s  %s\n", job.ID, job.GetStatus(), job.Description)
	}
}

func (c *Commander) cmdJob(args []string) {
	if len(args) != 1 {
		fmt.Println(c.red("usage: job <id>"))
		return
	}
	job, ok := c.jobManager.Get(args[0])
	if !ok {
		fmt.Println(c.red("job not found:"), args[0])
		return
	}
	fmt.Printf("%s  %s\n", job.ID, job.GetStatus())
	for _, line := range job.GetLogs() {
		fmt.Println(" ", line)
	}
	if err := job.GetError(); err != nil {
		fmt.Println(c.red("error:"), err)
	}
}

func (c *Commander) setBundle(b *persistence.ModelBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundle = b
}

func (c *Commander) currentBundle() *persistence.ModelBundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundle
}

func (c *Commander) cmdPredict(args []string) {
	bundle := c.currentBundle()
	if bundle == nil {
		fmt.Println(c.yellow("no model trained or loaded"))
		return
	}
	if len(args) != 1 {
		fmt.Println(c.red("usage: predict <v1,v2,...>"))
		return
	}

	parts := strings.Split(args[0], ",")
	row := make([]decimal.Decimal, len(parts))
	for i, part := range parts {
		val, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			fmt.Println(c.red("bad feature value:"), part)
			return
		}
		row[i] = val
	}

	preds, err := bundle.Model.Predict([][]decimal.Decimal{row})
	if err != nil {
		fmt.Println(c.red("prediction failed:"), err)
		return
	}

	if bundle.LabelEncoder != nil {
		labels, err := bundle.LabelEncoder.InverseTransform([]int{int(preds[0].IntPart())})
		if err == nil {
			fmt.Println(c.green("prediction:"), labels[0])
			return
		}
	}
	fmt.Println(c.green("prediction:"), preds[0])
}

// cmdEvaluate scores the current model against a labeled CSV batch by
// batch, without loading the whole file.
func (c *Commander) cmdEvaluate(args []string) {
	bundle := c.currentBundle()
	if bundle == nil {
		fmt.Println(c.yellow("no model trained or loaded"))
		return
	}
	if bundle.LabelEncoder == nil {
		fmt.Println(c.yellow("current model has no label encoder"))
		return
	}
	if len(args) < 1 {
		fmt.Println(c.red("usage: evaluate <file.csv> [batch-size]"))
		return
	}
	batchSize := batchSizeArg(args, 1000)

	correct, total := 0, 0
	err := dataset.ForEachBatch(args[0], batchSize, func(batch *dataset.Batch) error {
		truth, err := bundle.LabelEncoder.Transform(batch.Labels)
		if err != nil {
			return err
		}
		preds, err := bundle.Model.Predict(batch.X)
		if err != nil {
			return err
		}
		for i, pred := range evaluation.DecodePredictions(preds) {
			if pred == truth[i] {
				correct++
			}
		}
		total += batch.Len()
		return nil
	})
	if err != nil {
		fmt.Println(c.red("evaluation failed:"), err)
		return
	}
	if total == 0 {
		fmt.Println(c.yellow("no rows to score"))
		return
	}
	fmt.Printf("%s %.4f over %d rows\n", c.green("accuracy:"), float64(correct)/float64(total), total)
}

func (c *Commander) cmdSave(args []string) {
	bundle := c.currentBundle()
	if bundle == nil {
		fmt.Println(c.yellow("no model to save"))
		return
	}
	if len(args) != 1 {
		fmt.Println(c.red("usage: save <file>"))
		return
	}
	if err := bundle.Save(args[0]); err != nil {
		fmt.Println(c.red("save failed:"), err)
		return
	}
	fmt.Println(c.green("saved:"), args[0])
}

func (c *Commander) cmdLoad(args []string) {
	if len(args) != 1 {
		fmt.Println(c.red("usage: load <file>"))
		return
	}
	bundle, err := persistence.LoadModelBundle(args[0])
	if err != nil {
		fmt.Println(c.red("load failed:"), err)
		return
	}
	c.setBundle(bundle)
	fmt.Printf("%s %s (%s)\n", c.green("loaded:"), bundle.Metadata.ModelName, bundle.Metadata.FitterName)
}

// parseParams turns key=value arguments into typed parameters,
// preferring int, then float, then bool, falling back to string.
func parseParams(args []string) learn.Params {
	params := make(learn.Params)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			params[key] = n
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			params[key] = b
		} else {
			params[key] = value
		}
	}
	return params
}
