package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/keyvault-go/internal/core/vault"
)

// BenchmarkVaultInsertDelete measures one insert plus the matching delete
// against a prefilled directory, so the vault size stays constant.
func BenchmarkVaultInsertDelete(b *testing.B) {
	for _, keys := range []int{1, 16, 63} {
		b.Run(fmt.Sprintf("keys_%d", keys), func(b *testing.B) {
			v := newVault(b, 1)
			prefill(b, v, keys, 4)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if err := v.Insert(1, "bench", "value"); err != nil {
					b.Fatalf("Insert: %v", err)
				}
				if ok, err := v.Delete(1, "bench", "value"); err != nil || !ok {
					b.Fatalf("Delete = %v, %v", ok, err)
				}
			}
		})
	}
}

// BenchmarkVaultFindPair looks up the last pair of the last chain, the worst
// case of the linear scan.
func BenchmarkVaultFindPair(b *testing.B) {
	for _, perKey := range []int{1, 16, 128} {
		b.Run(fmt.Sprintf("chain_%d", perKey), func(b *testing.B) {
			v := newVault(b, 1)
			prefill(b, v, 32, perKey)
			value := fmt.Sprintf("v%d", perKey-1)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if v.FindPair(1, "k31", value) == nil {
					b.Fatal("FindPair returned nil")
				}
			}
		})
	}
}

func BenchmarkVaultRetrieveValues(b *testing.B) {
	v := newVault(b, 1)
	prefill(b, v, 32, 32)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if got := v.RetrieveValues(1, "k16"); len(got) != 32 {
			b.Fatalf("RetrieveValues len = %d", len(got))
		}
	}
}

// BenchmarkVaultWalk steps a cursor across one user's whole sequence.
func BenchmarkVaultWalk(b *testing.B) {
	v := newVault(b, 1)
	prefill(b, v, 32, 32)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		n := 0
		for node := v.First(1); node != nil; node = v.Next(1, node) {
			n++
		}
		if n != 32*32 {
			b.Fatalf("walked %d pairs", n)
		}
	}
}

func BenchmarkVaultDump(b *testing.B) {
	runWithUserCounts(b, UserCounts, func(b *testing.B, users int) {
		v := newVault(b, users)
		prefill(b, v, 4, 4)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			if got := v.Dump(vault.Reverse); len(got) != users {
				b.Fatalf("Dump users = %d", len(got))
			}
		}

		b.StopTimer()
		reportMemory(b, "mem")
	})
}

func BenchmarkVaultTotals(b *testing.B) {
	runWithUserCounts(b, UserCounts, func(b *testing.B, users int) {
		v := newVault(b, users)
		prefill(b, v, 2, 2)

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_ = v.TotalKeyCount()
			_ = v.TotalPairCount()
		}
	})
}
