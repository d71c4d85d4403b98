package repository

import (
	"context"
	"fmt"
	"testing"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	testutil "club-overview-console/internal/testing"
)

// Benchmark the listing read path that feeds the allocator and the club list.
func BenchmarkSQLRecordStore_GetAll(b *testing.B) {
	repo := NewSQLRecordStore(testutil.NewDBTest(b).DB)
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("club_%d", i)
		if err := repo.Put(ctx, domain.CollectionClubData, id, models.Document{"name": id}, domain.PutOptions{}); err != nil {
			b.Fatalf("seed: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = repo.GetAll(ctx, domain.CollectionClubData)
	}
}
