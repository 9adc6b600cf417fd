package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"inkside/internal/entity"
)

type fakeImageSource struct {
	failures map[string]bool
}

func (f *fakeImageSource) Fetch(_ context.Context, imageURL string) ([]byte, error) {
	if f.failures[imageURL] {
		return nil, errors.New("fetch failed")
	}
	return []byte("image:" + imageURL), nil
}

func seedDesigns(repo *fakeRepo, userID uint, count int) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		repo.designs = append(repo.designs, entity.DbDesign{
			ID:        uint(i + 1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UserID:    userID,
			ImageURL:  fmt.Sprintf("/files/user-designs/%d/%d.png", userID, i+1),
			Prompt:    fmt.Sprintf("design %d", i+1),
			Style:     string(entity.StyleBlackwork),
		})
	}
	repo.nextID = uint(count + 1)
}

func TestFetchPageEmptyGallery(t *testing.T) {
	repo := newFakeRepo()
	svc := NewGalleryService(repo, &fakeImageSource{})

	page, err := svc.FetchPage(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Designs) != 0 {
		t.Errorf("expected empty page, got %d designs", len(page.Designs))
	}
	if page.TotalPages != 1 {
		t.Errorf("expected total pages 1, got %d", page.TotalPages)
	}
	if page.Page != 1 {
		t.Errorf("expected page 1, got %d", page.Page)
	}
}

func TestFetchPagePaginatesNewestFirst(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, 17)
	svc := NewGalleryService(repo, &fakeImageSource{})

	first, err := svc.FetchPage(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("unexpected error fetching page 1: %v", err)
	}
	if len(first.Designs) != GalleryPageSize {
		t.Fatalf("expected %d designs on page 1, got %d", GalleryPageSize, len(first.Designs))
	}
	if first.TotalPages != 2 {
		t.Errorf("expected total pages 2, got %d", first.TotalPages)
	}
	// 最新的设计排在最前
	if first.Designs[0].ID != 17 {
		t.Errorf("expected newest design first, got id %d", first.Designs[0].ID)
	}

	second, err := svc.FetchPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error fetching page 2: %v", err)
	}
	if len(second.Designs) != 1 {
		t.Fatalf("expected 1 design on page 2, got %d", len(second.Designs))
	}
	if second.Designs[0].ID != 1 {
		t.Errorf("expected oldest design on last page, got id %d", second.Designs[0].ID)
	}
}

func TestFetchPageExactMultipleLeavesEmptyNextPage(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, GalleryPageSize)
	svc := NewGalleryService(repo, &fakeImageSource{})

	first, err := svc.FetchPage(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalPages != 1 {
		t.Errorf("expected total pages 1, got %d", first.TotalPages)
	}

	// 取满一页后第二页游标已建立，返回空页而不是错误
	second, err := svc.FetchPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error fetching empty page 2: %v", err)
	}
	if len(second.Designs) != 0 {
		t.Errorf("expected empty page 2, got %d designs", len(second.Designs))
	}
}

func TestFetchPageCountsOncePerSession(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, 20)
	svc := NewGalleryService(repo, &fakeImageSource{})

	for i := 0; i < 3; i++ {
		if _, err := svc.FetchPage(context.Background(), 1, 1); err != nil {
			t.Fatalf("unexpected error fetching page 1: %v", err)
		}
	}
	if repo.countDesignsCalls != 1 {
		t.Errorf("expected 1 count query for the session, got %d", repo.countDesignsCalls)
	}

	// 刷新丢弃会话后才重新统计
	if _, err := svc.Refresh(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error refreshing: %v", err)
	}
	if repo.countDesignsCalls != 2 {
		t.Errorf("expected recount after refresh, got %d count queries", repo.countDesignsCalls)
	}
}

func TestFetchPageRejectsSkippingAhead(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, 40)
	svc := NewGalleryService(repo, &fakeImageSource{})

	if _, err := svc.FetchPage(context.Background(), 1, 1); err != nil {
		t.Fatalf("unexpected error fetching page 1: %v", err)
	}

	_, err := svc.FetchPage(context.Background(), 1, 3)
	if !errors.Is(err, ErrPageCursorUnavailable) {
		t.Fatalf("expected ErrPageCursorUnavailable, got %v", err)
	}

	// 顺序翻页建立游标后即可访问
	if _, err := svc.FetchPage(context.Background(), 1, 2); err != nil {
		t.Fatalf("unexpected error fetching page 2: %v", err)
	}
	if _, err := svc.FetchPage(context.Background(), 1, 3); err != nil {
		t.Fatalf("unexpected error fetching page 3: %v", err)
	}
}

func TestRefreshDiscardsCursors(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, 20)
	svc := NewGalleryService(repo, &fakeImageSource{})

	if _, err := svc.FetchPage(context.Background(), 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.FetchPage(context.Background(), 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 新增一条设计后刷新
	seed := repo.designs[len(repo.designs)-1]
	seed.ID = 99
	seed.CreatedAt = seed.CreatedAt.Add(time.Hour)
	repo.designs = append(repo.designs, seed)

	page, err := svc.Refresh(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error refreshing: %v", err)
	}
	if page.Designs[0].ID != 99 {
		t.Errorf("expected refreshed page to lead with newest design, got id %d", page.Designs[0].ID)
	}

	// 刷新后旧的第 2 页游标作废
	if _, err := svc.FetchPage(context.Background(), 1, 3); !errors.Is(err, ErrPageCursorUnavailable) {
		t.Errorf("expected ErrPageCursorUnavailable after refresh, got %v", err)
	}
}

func TestExportAllPacksDesignsAndSkipsFailures(t *testing.T) {
	repo := newFakeRepo()
	seedDesigns(repo, 1, 3)
	source := &fakeImageSource{failures: map[string]bool{
		"/files/user-designs/1/2.png": true,
	}}
	svc := NewGalleryService(repo, source)

	var buf bytes.Buffer
	if err := svc.ExportAll(context.Background(), 1, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("unexpected error reading archive: %v", err)
	}

	names := make(map[string]bool)
	for _, file := range reader.File {
		names[file.Name] = true
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 archive entries, got %d", len(names))
	}
	if !names["inkside_design_3.png"] || !names["inkside_design_1.png"] {
		t.Errorf("unexpected archive entries: %v", names)
	}
	if names["inkside_design_2.png"] {
		t.Error("expected failed design to be skipped")
	}
}
