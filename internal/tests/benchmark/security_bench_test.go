package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
)

// BenchmarkHashSecret measures the argon2id cost paid once per principal.
func BenchmarkHashSecret(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := domain.HashSecret("correct horse battery staple"); err != nil {
			b.Fatalf("HashSecret: %v", err)
		}
	}
}

// BenchmarkVerifySecret compares matching and mismatching secrets, which
// should cost the same.
func BenchmarkVerifySecret(b *testing.B) {
	hash, err := domain.HashSecret("s3cret")
	if err != nil {
		b.Fatalf("HashSecret: %v", err)
	}

	b.Run("match", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			domain.VerifySecret("s3cret", hash)
		}
	})
	b.Run("mismatch", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			domain.VerifySecret("s3creX", hash)
		}
	})
}

// BenchmarkResolveOrdinal measures AUTH for a bare ordinal, which skips
// secret verification.
func BenchmarkResolveOrdinal(b *testing.B) {
	r, err := service.NewIdentityResolver(16, service.IdentityConfig{AllowAnonymousOrdinals: true})
	if err != nil {
		b.Fatalf("NewIdentityResolver: %v", err)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(ctx, "7", ""); err != nil {
			b.Fatalf("Resolve: %v", err)
		}
	}
}
