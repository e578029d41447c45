// internal/services/export_service.go
package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/storage"
	"github.com/Corphon/AnimStudio/internal/utils"
)

const (
	ContentTypeZip   = "application/zip"
	exportDir        = "exports"
	untitledProject  = "Untitled"
	defaultExportTag = "Export"
)

var whitespaceRun = regexp.MustCompile(`\s+`)
var whitespaceChar = regexp.MustCompile(`\s`)

// ExportService 把项目快照打包为 zip
type ExportService struct {
	storage *storage.FileStorage // 为 nil 时不保存副本
	metrics *utils.StudioMetrics
	logger  *utils.Logger
	now     func() time.Time
}

// NewExportService 创建导出服务；fileStorage 非空时每个归档都会在数据目录保存一份
func NewExportService(fileStorage *storage.FileStorage, metrics *utils.StudioMetrics) *ExportService {
	return &ExportService{
		storage: fileStorage,
		metrics: metrics,
		logger:  utils.GetLogger(),
		now:     time.Now,
	}
}

// ArchiveFilename 项目归档文件名
func ArchiveFilename(title string) string {
	tag := whitespaceRun.ReplaceAllString(title, "-")
	if tag == "" {
		tag = defaultExportTag
	}
	return fmt.Sprintf("AnimAI-Project-%s.zip", tag)
}

// MarketingKitFilename 发行素材包文件名
func MarketingKitFilename(platform string) string {
	return fmt.Sprintf("Distribution-Kit-%s.zip", whitespaceChar.ReplaceAllString(platform, "_"))
}

// ProjectSummary 生成 summary.md 内容
func ProjectSummary(st project.State) string {
	var b strings.Builder
	title := untitledProject
	if st.Outline != nil && st.Outline.Title != "" {
		title = st.Outline.Title
	}
	fmt.Fprintf(&b, "# AnimAI Studio Project: %s\n\n", title)

	if st.Outline != nil {
		fmt.Fprintf(&b, "## Logline\n%s\n\n", st.Outline.Logline)
	}
	if len(st.Characters) > 0 {
		names := make([]string, 0, len(st.Characters))
		for _, c := range st.Characters {
			names = append(names, "- "+c.Name)
		}
		fmt.Fprintf(&b, "## Characters\n%s\n\n", strings.Join(names, "\n"))
	}
	return b.String()
}

type archiveWriter struct {
	zw    *zip.Writer
	files []string
}

func (a *archiveWriter) text(name, content string) error {
	w, err := a.zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return err
	}
	a.files = append(a.files, name)
	return nil
}

func (a *archiveWriter) json(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return a.text(name, string(data))
}

func (s *ExportService) build(kind, filename string, fill func(a *archiveWriter) error) (*models.ExportResult, error) {
	var buf bytes.Buffer
	a := &archiveWriter{zw: zip.NewWriter(&buf)}
	if err := fill(a); err != nil {
		return nil, apperrors.NewProcessingError("failed to build archive", err)
	}
	if err := a.zw.Close(); err != nil {
		return nil, apperrors.NewProcessingError("failed to build archive", err)
	}

	result := &models.ExportResult{
		Filename:    filename,
		ContentType: ContentTypeZip,
		Content:     buf.Bytes(),
		Files:       a.files,
		GeneratedAt: s.now(),
		FileSize:    int64(buf.Len()),
	}

	if s.storage != nil {
		if err := s.save(result); err != nil {
			// 副本保存失败不影响下载
			s.logger.Warn("Failed to save export copy", map[string]interface{}{
				"filename": filename,
				"error":    err.Error(),
			})
		}
	}
	if s.metrics != nil {
		s.metrics.RecordExport(kind, result.FileSize)
	}
	return result, nil
}

func (s *ExportService) save(result *models.ExportResult) error {
	base := strings.TrimSuffix(result.Filename, ".zip")
	name := fmt.Sprintf("%s_%s.zip", base, result.GeneratedAt.Format("20060102_150405"))
	path, err := s.storage.SaveFile(exportDir, name, result.Content)
	if err != nil {
		return err
	}
	result.FilePath = path
	return nil
}

// ErrSavedExportsDisabled 未开启 SAVE_EXPORTS
var ErrSavedExportsDisabled = apperrors.NewNotFoundError("saved exports are disabled", nil)

// ListSaved 列出已保存的归档副本，按名称排序
func (s *ExportService) ListSaved() ([]string, error) {
	if s.storage == nil {
		return nil, ErrSavedExportsDisabled
	}
	return s.storage.ListFiles(exportDir, ".zip")
}

// LoadSaved 读取一个已保存的副本
func (s *ExportService) LoadSaved(name string) (*models.ExportResult, error) {
	if s.storage == nil {
		return nil, ErrSavedExportsDisabled
	}
	if !s.hasSaved(name) {
		return nil, apperrors.NewNotFoundError("saved export not found", nil)
	}
	content, err := s.storage.LoadFile(exportDir, name)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to read saved export", err)
	}
	return &models.ExportResult{
		Filename:    name,
		ContentType: ContentTypeZip,
		Content:     content,
		FileSize:    int64(len(content)),
	}, nil
}

// DeleteSaved 删除一个已保存的副本
func (s *ExportService) DeleteSaved(name string) error {
	if s.storage == nil {
		return ErrSavedExportsDisabled
	}
	if !s.hasSaved(name) {
		return apperrors.NewNotFoundError("saved export not found", nil)
	}
	if err := s.storage.DeleteFile(exportDir, name); err != nil {
		return apperrors.NewProcessingError("failed to delete saved export", err)
	}
	s.logger.Info("Saved export deleted", map[string]interface{}{"filename": name})
	return nil
}

// 只接受 exports 目录下的 zip 文件名
func (s *ExportService) hasSaved(name string) bool {
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".zip") {
		return false
	}
	return s.storage.FileExists(exportDir, name)
}

// BuildArchive 打包项目快照；只写入非空的内容，summary.md 始终存在
func (s *ExportService) BuildArchive(st project.State) (*models.ExportResult, error) {
	title := ""
	if st.Outline != nil {
		title = st.Outline.Title
	}

	return s.build("project", ArchiveFilename(title), func(a *archiveWriter) error {
		if st.Outline != nil {
			if err := a.json("outline.json", st.Outline); err != nil {
				return err
			}
		}
		if st.Plot != nil {
			if err := a.json("plot.json", st.Plot); err != nil {
				return err
			}
		}
		if len(st.Characters) > 0 {
			if err := a.json("characters.json", st.Characters); err != nil {
				return err
			}
		}
		if len(st.Locations) > 0 {
			if err := a.json("locations.json", st.Locations); err != nil {
				return err
			}
		}
		if len(st.Storyboard) > 0 {
			if err := a.json("storyboard.json", st.Storyboard); err != nil {
				return err
			}
		}
		if len(st.VoiceScripts) > 0 {
			if err := a.json("voice-scripts.json", st.VoiceScripts); err != nil {
				return err
			}
		}
		if st.MarketingKit != nil {
			if err := a.json("marketing/kit.json", st.MarketingKit); err != nil {
				return err
			}
			if err := a.text("marketing/post.txt", st.MarketingKit.SocialMediaPost); err != nil {
				return err
			}
		}
		return a.text("summary.md", ProjectSummary(st))
	})
}

// BuildMarketingKit 打包发行素材
func (s *ExportService) BuildMarketingKit(kit *models.MarketingResult, platform string) (*models.ExportResult, error) {
	if kit == nil {
		return nil, apperrors.NewNotFoundError("no marketing kit has been generated", nil)
	}

	return s.build("marketing", MarketingKitFilename(platform), func(a *archiveWriter) error {
		entries := []struct{ name, content string }{
			{"taglines.txt", strings.Join(kit.Taglines, "\n")},
			{"social_media_post.txt", kit.SocialMediaPost},
			{"synopsis.txt", kit.ShortSynopsis},
			{"engagement_hooks.txt", strings.Join(kit.EngagementHooks, "\n")},
		}
		for _, e := range entries {
			if err := a.text(e.name, e.content); err != nil {
				return err
			}
		}
		return nil
	})
}
