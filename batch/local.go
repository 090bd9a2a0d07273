package batch

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

// LocalRunner executes combine+group+reduce in-process. Combiner workers run
// as shared-nothing goroutines over disjoint input partitions and spill
// per-bucket intermediate files into the stage dir; the file handoff between
// the phases is the grouping barrier. Reducers for distinct buckets run in
// parallel.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, cfg RunConfig) error {
	cfg.withDefaults()
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("no input partitions")
	}
	if cfg.StageDir == "" {
		return fmt.Errorf("stage dir is required")
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("output dir is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	partitions := splitPartitions(cfg.Inputs, cfg.Workers)
	log.Infof("[Runner] Start combine phase: %d partitions, %d reduce buckets", len(partitions), cfg.Reducers)

	// bucketFiles[r] collects every worker's intermediate file for bucket r.
	bucketFiles := make([][]string, cfg.Reducers)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(partitions))

	for _, part := range partitions {
		wg.Add(1)
		go func(files []string) {
			defer wg.Done()
			names, err := combinePartition(cfg, files)
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			for r, name := range names {
				if name != "" {
					bucketFiles[r] = append(bucketFiles[r], name)
				}
			}
			mu.Unlock()
		}(part)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		return err
	}
	log.Trace("[Runner] End combine phase")

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info("[Runner] Start reduce phase")
	var reduceWg sync.WaitGroup
	reduceErrCh := make(chan error, cfg.Reducers)
	for r := 0; r < cfg.Reducers; r++ {
		reduceWg.Add(1)
		go func(r int) {
			defer reduceWg.Done()
			if err := reduceBucket(cfg, r, bucketFiles[r]); err != nil {
				reduceErrCh <- err
			}
		}(r)
	}
	reduceWg.Wait()
	close(reduceErrCh)
	for err := range reduceErrCh {
		return err
	}
	log.Info("[Runner] End reduce phase")

	return nil
}

// splitPartitions assigns input files round-robin to at most n workers.
func splitPartitions(inputs []string, n int) [][]string {
	if n > len(inputs) {
		n = len(inputs)
	}
	parts := make([][]string, n)
	for i, f := range inputs {
		parts[i%n] = append(parts[i%n], f)
	}
	return parts
}

// combinePartition runs one combiner over its partition and spills the
// resulting partials into one intermediate file per reduce bucket.
// The returned slice is indexed by bucket; empty buckets yield "".
func combinePartition(cfg RunConfig, files []string) ([]string, error) {
	combiner := aggregate.NewCombiner(cfg.Schema)
	for _, file := range files {
		if err := combineFile(combiner, file); err != nil {
			return nil, err
		}
	}

	buckets := make([][]aggregate.Partial, cfg.Reducers)
	for _, p := range combiner.Flush() {
		r := bucketForKey(p.Key, cfg.Reducers)
		buckets[r] = append(buckets[r], p)
	}

	workerID := uuid.New().String()
	names := make([]string, cfg.Reducers)
	for r, partials := range buckets {
		if len(partials) == 0 {
			continue
		}
		name := filepath.Join(cfg.StageDir, fmt.Sprintf("imd-%s-%d.txt", workerID, r))
		if err := os.WriteFile(name, []byte(encodePartials(partials)), 0o644); err != nil {
			return nil, err
		}
		names[r] = name
	}
	return names, nil
}

func combineFile(combiner *aggregate.Combiner, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// A line may carry several whitespace-separated tokens.
		for _, token := range strings.Fields(scanner.Text()) {
			if err := combiner.Add(token); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
		}
	}
	return scanner.Err()
}

// reduceBucket sums the grouped partials of one bucket and writes the
// bucket's output partition. Rows come out sorted by key, so a re-run over
// identical input reproduces the partition byte for byte.
func reduceBucket(cfg RunConfig, r int, files []string) error {
	var partials []aggregate.Partial
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		decoded, err := decodePartials(string(b))
		if err != nil {
			return err
		}
		partials = append(partials, decoded...)
	}

	sort.Slice(partials, func(i, j int) bool { return partials[i].Key < partials[j].Key })

	out, err := os.Create(filepath.Join(cfg.OutputDir, fmt.Sprintf("mr-out-%d.txt", r)))
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	reducer := aggregate.NewReducer(cfg.Schema)
	i := 0
	for i < len(partials) {
		j := i + 1
		for j < len(partials) && partials[j].Key == partials[i].Key {
			j++
		}
		counts := make([]int, 0, j-i)
		for k := i; k < j; k++ {
			counts = append(counts, partials[k].Count)
		}
		rec, err := reducer.Reduce(partials[i].Key, counts)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, aggregate.FormatRow(rec))
		i = j
	}
	return w.Flush()
}

func bucketForKey(key string, nReduce int) int {
	if nReduce <= 0 {
		panic("nReduce must be > 0")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()&0x7fffffff) % nReduce
}
