package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bookrec/config"
	"bookrec/internal/adapter/embedding"
	"bookrec/internal/adapter/store"
	"bookrec/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Root directory holding the snapshot")
	query := flag.String("q", "", "Optional text query to time end to end")
	topK := flag.Int("k", 5, "Number of neighbours per query")
	samples := flag.Int("n", 200, "Library items to sample for the lookup benchmark")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewBoltStore(cfg.StorePath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	logger := zerolog.Nop()

	start := time.Now()
	snap, err := usecase.LoadSnapshot(ctx, st, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading snapshot: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(start)

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Items:      %d\n", snap.Store.Len())
	fmt.Printf("Dimension:  %d\n", snap.Store.Dimension())
	fmt.Printf("Load + fit: %s\n\n", loadTime)

	if snap.Store.Len() == 0 {
		fmt.Println("Snapshot is empty - run 'bookrec import' first")
		os.Exit(1)
	}

	rec := usecase.NewRecommender(usecase.NewQueryEncoder(nil, 0), usecase.Ready(snap), nil,
		usecase.RecommenderConfig{TopK: *topK}, logger)

	n := min(*samples, snap.Store.Len())
	step := max(snap.Store.Len()/n, 1)
	var (
		latencies []time.Duration
		twins     int
	)
	for id := 0; id < snap.Store.Len() && len(latencies) < n; id += step {
		t0 := time.Now()
		res, err := rec.RecommendFromLibrary(ctx, id, *topK)
		latencies = append(latencies, time.Since(t0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lookup %d failed: %v\n", id, err)
			os.Exit(1)
		}
		// A full answer means the item did not find itself, i.e. duplicates.
		if len(res) == *topK {
			twins++
		}
	}

	fmt.Printf("Library lookups (k=%d, %d samples):\n", *topK, len(latencies))
	printLatencies(latencies)
	fmt.Printf("  Items with an identical twin: %d\n\n", twins)

	if *query == "" {
		return
	}

	enc, err := embedding.New(cfg, *dir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Text encoder not available: %v\n", err)
		os.Exit(1)
	}
	rec = usecase.NewRecommender(usecase.NewQueryEncoder(enc, cfg.Retrieve.MaxQueryWords), usecase.Ready(snap), nil,
		usecase.RecommenderConfig{TopK: *topK}, logger)

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	t0 := time.Now()
	res, err := rec.RecommendText(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Text query failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Answered in %s (model %s)\n\n", time.Since(t0), enc.ModelName())
	for _, r := range res {
		fmt.Printf("%d. [%.3f] %s (id %s)\n", r.Rank+1, r.Score, r.Title, r.ItemID)
	}
}

func printLatencies(ds []time.Duration) {
	slices.Sort(ds)
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	pct := func(p float64) time.Duration {
		return ds[int(p*float64(len(ds)-1))]
	}
	fmt.Printf("  mean %s  p50 %s  p95 %s  max %s\n",
		total/time.Duration(len(ds)), pct(0.5), pct(0.95), ds[len(ds)-1])
}
