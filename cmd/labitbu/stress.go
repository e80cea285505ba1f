package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stutxo/labitbu/artgen"
)

type stressResult struct {
	count    int
	maxLen   int
	maxTrait artgen.Traits
	indexed  int
}

// runStress generates count artifacts for derived keys across workers
// goroutines, generating each twice to check determinism.
func runStress(ctx context.Context, g *artgen.Generator, count, workers int) (*stressResult, error) {
	var (
		mu  sync.Mutex
		res stressResult
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < count; i++ {
		i := i
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			var idx [8]byte
			binary.BigEndian.PutUint64(idx[:], uint64(i))
			key := sha256.Sum256(append([]byte("labitbu stress"), idx[:]...))

			a, err := g.Generate(key[:])
			if err != nil {
				return fmt.Errorf("key %x: %w", key, err)
			}
			b, err := g.Generate(key[:])
			if err != nil {
				return fmt.Errorf("key %x: %w", key, err)
			}
			if !bytes.Equal(a.Bytes[:], b.Bytes[:]) {
				return fmt.Errorf("key %x: output not deterministic", key)
			}

			mu.Lock()
			res.count++
			if a.Len > res.maxLen {
				res.maxLen = a.Len
				res.maxTrait = a.Traits
			}
			if a.Indexed {
				res.indexed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

func newStressCmd(a *app) *cobra.Command {
	var count, workers int
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Generate many artifacts concurrently and check size and determinism",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 || workers <= 0 {
				return fmt.Errorf("--count and --workers must be positive")
			}
			g, err := a.generator()
			if err != nil {
				return err
			}
			res, err := runStress(cmd.Context(), g, count, workers)
			if err != nil {
				return err
			}
			a.printf("generated %d artifacts, largest %d bytes (%s), %d indexed\n",
				res.count, res.maxLen, res.maxTrait, res.indexed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1000, "Number of keys")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Concurrent workers")
	return cmd
}
