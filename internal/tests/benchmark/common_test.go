package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
)

// UserCounts defines the vault sizes used by the scale benchmarks.
var UserCounts = []int{16, 256, 4096}

// benchLimits leaves room for deep chains and wide directories.
var benchLimits = vault.Limits{KeySize: 20, ValueSize: 20, MaxKeys: 64}

func newVault(b *testing.B, users int) *vault.Vault {
	b.Helper()
	v, err := vault.New(users, vault.WithLimits(benchLimits))
	if err != nil {
		b.Fatalf("vault.New: %v", err)
	}
	b.Cleanup(v.Close)
	return v
}

// prefill writes keys*perKey pairs into every user.
func prefill(b *testing.B, v *vault.Vault, keys, perKey int) {
	b.Helper()
	for u := 1; u <= v.Users(); u++ {
		for k := 0; k < keys; k++ {
			for p := 0; p < perKey; p++ {
				if err := v.Insert(u, fmt.Sprintf("k%d", k), fmt.Sprintf("v%d", p)); err != nil {
					b.Fatalf("Insert(%d): %v", u, err)
				}
			}
		}
	}
}

func newDevice(b *testing.B, users int) *service.Device {
	b.Helper()
	d := service.NewDevice(newVault(b, users))
	b.Cleanup(d.Shutdown)
	return d
}

// reportMemory reports heap usage after a forced GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithUserCounts runs benchFn once per vault size.
func runWithUserCounts(b *testing.B, counts []int, benchFn func(b *testing.B, users int)) {
	for _, users := range counts {
		b.Run(fmt.Sprintf("users_%d", users), func(b *testing.B) {
			benchFn(b, users)
		})
	}
}
