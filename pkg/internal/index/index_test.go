package index_test

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/khaznati/chunkvault/pkg/internal/index"
	"github.com/khaznati/chunkvault/pkg/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.Chunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// TestAppendAndListOrdered 乱序登记的分块按 Seq 升序返回.
func TestAppendAndListOrdered(t *testing.T) {
	idx := index.New(newTestDB(t))
	ctx := t.Context()

	for _, seq := range []int{2, 0, 1} {
		rec := &model.Chunk{
			FileID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			Seq:      seq,
			Locator:  "chunks/loc-" + string(rune('a'+seq)),
			Backend:  "s3",
			Size:     1024,
			Checksum: "00000000000000aa",
		}
		if err := idx.Append(ctx, rec); err != nil {
			t.Fatalf("append seq %d: %v", seq, err)
		}
	}

	recs, err := idx.ListOrdered(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}

	for i, r := range recs {
		if r.Seq != i {
			t.Errorf("record %d has seq %d, want %d", i, r.Seq, i)
		}
	}
}

// TestAppendDuplicateSeq 同一文件同一序号重复登记返回 ErrDuplicate.
func TestAppendDuplicateSeq(t *testing.T) {
	idx := index.New(newTestDB(t))
	ctx := t.Context()

	rec := &model.Chunk{FileID: "f1", Seq: 0, Locator: "a", Backend: "s3", Size: 1}
	if err := idx.Append(ctx, rec); err != nil {
		t.Fatalf("first append: %v", err)
	}

	dup := &model.Chunk{FileID: "f1", Seq: 0, Locator: "b", Backend: "s3", Size: 1}
	if err := idx.Append(ctx, dup); !errors.Is(err, index.ErrDuplicate) {
		t.Errorf("duplicate append = %v, want ErrDuplicate", err)
	}

	// 不同文件的相同序号不冲突
	other := &model.Chunk{FileID: "f2", Seq: 0, Locator: "c", Backend: "s3", Size: 1}
	if err := idx.Append(ctx, other); err != nil {
		t.Errorf("same seq on other file rejected: %v", err)
	}
}

// TestCountAndDeleteAll 删除后索引为空，其他文件不受影响.
func TestCountAndDeleteAll(t *testing.T) {
	idx := index.New(newTestDB(t))
	ctx := t.Context()

	recs := []model.Chunk{
		{FileID: "keep", Seq: 0, Locator: "k0", Backend: "s3", Size: 1},
		{FileID: "gone", Seq: 0, Locator: "g0", Backend: "s3", Size: 1},
		{FileID: "gone", Seq: 1, Locator: "g1", Backend: "s3", Size: 1},
	}
	if err := idx.AppendBatch(ctx, recs); err != nil {
		t.Fatalf("batch append: %v", err)
	}

	n, err := idx.Count(ctx, "gone")
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v; want 2, nil", n, err)
	}

	if err := idx.DeleteAll(ctx, "gone"); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	n, _ = idx.Count(ctx, "gone")
	if n != 0 {
		t.Errorf("count after delete = %d, want 0", n)
	}

	n, _ = idx.Count(ctx, "keep")
	if n != 1 {
		t.Errorf("other file count = %d, want 1", n)
	}
}
