package filter

import (
	"context"
	"fmt"
	"testing"

	"github.com/s0up4200/missionctl/transmission"
)

// generateTestTorrents creates test transfer data
func generateTestTorrents(count int) []transmission.Torrent {
	torrents := make([]transmission.Torrent, count)

	for i := 0; i < count; i++ {
		torrents[i] = transmission.Torrent{
			ID:               i,
			Name:             fmt.Sprintf("Linux ISO %d", i),
			TotalSize:        int64(i%50) << 30,
			PercentDone:      float64(i%101) / 100,
			Status:           transmission.Status(i % 7),
			PeersSendingToUs: i % 5,
			PeersConnected:   i % 11,
			DownloadDir:      "/data/torrents",
		}
	}

	return torrents
}

func BenchmarkCompile(b *testing.B) {
	expressions := []struct {
		name string
		expr string
	}{
		{"simple", `Status == "seeding"`},
		{"complex", `icontains(Name, "iso") and TotalSize > gib(10) and PercentDone < 0.9`},
	}

	for _, tc := range expressions {
		b.Run(tc.name, func(b *testing.B) {
			compiler := NewExprCompiler()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := compiler.Compile(tc.expr); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(tc.name+"_cached", func(b *testing.B) {
			compiler := NewExprCompiler(WithCache(10))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := compiler.Compile(tc.expr); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEvaluate(b *testing.B) {
	f, err := NewExprCompiler().Compile(`icontains(Name, "iso") and TotalSize > gib(10)`)
	if err != nil {
		b.Fatal(err)
	}

	for _, size := range []int{100, 1000, 10000} {
		torrents := generateTestTorrents(size)

		b.Run(fmt.Sprintf("sequential_%d", size), func(b *testing.B) {
			evaluator := NewConcurrentEvaluator(WithWorkers(1))
			for i := 0; i < b.N; i++ {
				if _, err := evaluator.Evaluate(context.Background(), f, torrents); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("concurrent_%d", size), func(b *testing.B) {
			evaluator := NewConcurrentEvaluator(WithBatchSize(50))
			for i := 0; i < b.N; i++ {
				if _, err := evaluator.Evaluate(context.Background(), f, torrents); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
