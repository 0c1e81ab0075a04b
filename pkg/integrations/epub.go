package integrations

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
)

type EPubBuilder struct {
	outputDir string
}

// NewEPubBuilder writes next to the title directory unless outputDir is set.
func NewEPubBuilder() *EPubBuilder {
	return &EPubBuilder{}
}

func NewEPubBuilderAt(outputDir string) *EPubBuilder {
	return &EPubBuilder{outputDir: outputDir}
}

// CreateEPub compiles the completed chapters of a title into a single EPub
// file. Chapters keep feed order and pages keep at-home order; pages that
// were never written are left out.
func (p *EPubBuilder) CreateEPub(title *data.Title, quality data.Quality) (string, error) {
	var chapters []*data.Chapter
	for _, chapter := range title.Chapters {
		if chapter.State == data.ChapterCompleted && chapter.Dir != "" {
			chapters = append(chapters, chapter)
		}
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("no chapters to compile")
	}

	outputDir := p.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(title.Dir)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	e, err := epub.NewEpub(title.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}
	e.SetAuthor("MangaDex")
	e.SetLang("en")

	added := 0
	for i, chapter := range chapters {
		n, err := p.addChapterToEPub(e, i, chapter, quality)
		if err != nil {
			return "", fmt.Errorf("failed to add chapter %s: %w", chapter.ID, err)
		}
		added += n
	}
	if added == 0 {
		return "", fmt.Errorf("no pages found for %s", title.ID)
	}

	name := filepath.Base(title.Dir)
	if title.Dir == "" {
		name = utils.SanitizeFilename(title.Name)
	}
	outputPath := filepath.Join(outputDir, name+".epub")

	if err := e.Write(outputPath); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}

	return outputPath, nil
}

// addChapterToEPub adds a single chapter's images to the EPub
func (p *EPubBuilder) addChapterToEPub(e *epub.Epub, index int, chapter *data.Chapter, quality data.Quality) (int, error) {
	chapterTitle := chapter.Title
	if chapterTitle == "" {
		chapterTitle = fmt.Sprintf("Chapter %d", index+1)
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(chapterTitle)))

	added := 0
	for i, page := range chapter.Pages(quality) {
		if !utils.IsPlainFilename(page) || !isImageFile(page) {
			continue
		}
		imgPath := filepath.Join(chapter.Dir, page)
		if _, err := os.Stat(imgPath); err != nil {
			continue
		}

		filename := fmt.Sprintf("c%04d-p%04d%s", index+1, i+1, strings.ToLower(filepath.Ext(page)))
		internalPath, err := e.AddImage(imgPath, filename)
		if err != nil {
			return added, fmt.Errorf("failed to add image %s: %w", page, err)
		}

		body.WriteString(fmt.Sprintf(
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internalPath, i+1, "\n",
		))
		added++
	}
	if added == 0 {
		return 0, nil
	}

	if _, err := e.AddSection(body.String(), chapterTitle, "", ""); err != nil {
		return added, fmt.Errorf("failed to add section: %w", err)
	}
	return added, nil
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif" || ext == ".webp"
}
