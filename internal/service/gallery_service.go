package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inkside/internal/entity"
	"inkside/internal/model"

	"github.com/sirupsen/logrus"
)

// GalleryPageSize 是画廊每页的记录数。
const GalleryPageSize = 16

// exportPacing 是打包导出时相邻两张图之间的间隔。
const exportPacing = 300 * time.Millisecond

// gallerySession 记录单个用户画廊的游标状态。
//
// cursors[i] 指向第 i+1 页第一条记录之前的位置，cursors[0] 恒为 nil。
// 游标只随顺序翻页逐页建立，不支持跳页。
type gallerySession struct {
	cursors    []*entity.DesignCursor
	totalPages int
}

// GalleryService 提供按页浏览与打包导出已保存设计的能力
type GalleryService struct {
	repo   model.Repository
	images ImageSource

	mu       sync.Mutex
	sessions map[uint]*gallerySession
}

// NewGalleryService 创建画廊服务实例
func NewGalleryService(repo model.Repository, images ImageSource) *GalleryService {
	return &GalleryService{
		repo:     repo,
		images:   images,
		sessions: make(map[uint]*gallerySession),
	}
}

// FetchPage 返回用户画廊的第 page 页。
//
// 总页数只在会话首次访问首页时统计一次，之后复用，直到 Refresh/Reset
// 丢弃会话；翻页只能逐页向前，跳到未建立游标的页返回
// ErrPageCursorUnavailable。
func (g *GalleryService) FetchPage(ctx context.Context, userID uint, page int) (*entity.GalleryPage, error) {
	if g == nil || g.repo == nil {
		return nil, fmt.Errorf("gallery service not initialised")
	}
	if page < 1 {
		page = 1
	}

	g.mu.Lock()
	sess := g.sessions[userID]
	if sess == nil {
		sess = &gallerySession{cursors: []*entity.DesignCursor{nil}}
		g.sessions[userID] = sess
	}
	if page > len(sess.cursors) {
		g.mu.Unlock()
		return nil, ErrPageCursorUnavailable
	}
	after := sess.cursors[page-1]
	needCount := page == 1 && sess.totalPages == 0
	g.mu.Unlock()

	if needCount {
		total, err := g.repo.CountDesigns(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count designs: %w", err)
		}
		totalPages := int(math.Ceil(float64(total) / float64(GalleryPageSize)))
		if totalPages < 1 {
			totalPages = 1
		}
		g.mu.Lock()
		sess.totalPages = totalPages
		g.mu.Unlock()
	}

	records, err := g.repo.ListDesignsAfter(ctx, userID, after, GalleryPageSize)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}

	summaries := make([]entity.DesignSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, entity.DesignSummary{
			ID:        record.ID,
			ImageURL:  record.ImageURL,
			Prompt:    record.Prompt,
			Style:     record.Style,
			CreatedAt: record.CreatedAt,
		})
	}

	g.mu.Lock()
	// 只有在取满当前页且尚未建立下一页游标时才向前扩展。
	if len(records) > 0 && page == len(sess.cursors) {
		last := records[len(records)-1]
		sess.cursors = append(sess.cursors, &entity.DesignCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	totalPages := sess.totalPages
	g.mu.Unlock()

	return &entity.GalleryPage{
		Designs:    summaries,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// Refresh 丢弃用户的游标状态并重新拉取首页（生成新设计后调用）。
func (g *GalleryService) Refresh(ctx context.Context, userID uint) (*entity.GalleryPage, error) {
	g.mu.Lock()
	delete(g.sessions, userID)
	g.mu.Unlock()
	return g.FetchPage(ctx, userID, 1)
}

// Reset 仅清除用户的游标状态，不触发查询。
func (g *GalleryService) Reset(userID uint) {
	g.mu.Lock()
	delete(g.sessions, userID)
	g.mu.Unlock()
}

// ExportAll 把用户的全部设计打包为 ZIP 写入 w。
//
// 逐张下载并以固定间隔推进，单张失败跳过不中断整体导出。
func (g *GalleryService) ExportAll(ctx context.Context, userID uint, w io.Writer) error {
	if g == nil || g.repo == nil {
		return fmt.Errorf("gallery service not initialised")
	}

	designs, err := g.repo.ListAllDesigns(ctx, userID)
	if err != nil {
		return fmt.Errorf("list designs: %w", err)
	}

	archive := zip.NewWriter(w)
	defer archive.Close()

	logger := logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"designs": len(designs),
	})
	logger.Info("gallery_export_start")

	exported := 0
	for idx, design := range designs {
		if idx > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exportPacing):
			}
		}

		data, err := g.images.Fetch(ctx, design.ImageURL)
		if err != nil {
			logger.WithError(err).WithField("design_id", design.ID).Warn("gallery_export_item_skipped")
			continue
		}

		entry, err := archive.Create(fmt.Sprintf("inkside_design_%d.png", design.ID))
		if err != nil {
			return fmt.Errorf("create archive entry: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("write archive entry: %w", err)
		}
		exported++
	}

	logger.WithField("exported", exported).Info("gallery_export_done")
	return nil
}

// ImageSource 按设计记录中保存的 URL 取回图片字节。
type ImageSource interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// StoredImageSource 解析本地存储与远端存储两种图片地址。
//
// 本地存储的 URL 带有公共前缀，映射回磁盘路径直接读取；其余按 HTTP 下载。
type StoredImageSource struct {
	httpClient    *http.Client
	localBaseDir  string
	publicBaseURL string
}

// NewStoredImageSource 创建图片源。localBaseDir 为空时只支持 HTTP 地址。
func NewStoredImageSource(localBaseDir, publicBaseURL string) *StoredImageSource {
	return &StoredImageSource{
		httpClient:    &http.Client{},
		localBaseDir:  strings.TrimSpace(localBaseDir),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// Fetch 取回一张图片的原始字节。
func (s *StoredImageSource) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	trimmed := strings.TrimSpace(imageURL)
	if trimmed == "" {
		return nil, fmt.Errorf("empty image url")
	}

	if s.localBaseDir != "" && s.publicBaseURL != "" && strings.HasPrefix(trimmed, s.publicBaseURL+"/") {
		rel := strings.TrimPrefix(trimmed, s.publicBaseURL+"/")
		full := filepath.Join(s.localBaseDir, filepath.FromSlash(rel))
		// 防止相对路径逃出存储目录
		if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(s.localBaseDir)) {
			return nil, fmt.Errorf("image path escapes storage dir")
		}
		return os.ReadFile(full)
	}

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, fmt.Errorf("unsupported image url: %s", trimmed)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, trimmed, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
